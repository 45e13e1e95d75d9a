package signals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
	"trade_sentinel_backend/services/ai"
	"trade_sentinel_backend/services/alerts"
	"trade_sentinel_backend/services/marketdata"
)

// TradeRecorder is the slice of the trade store the pipeline needs.
type TradeRecorder interface {
	Insert(ctx context.Context, trade *models.IdentifiedTrade) error
	MarkAlerted(ctx context.Context, id string, alertType models.AlertType, at time.Time) error
}

// Config tunes the pipeline.
type Config struct {
	Symbols          []string
	EventLookback    time.Duration
	CandleCount      int
	Timeframes       []string
	HighConfidence   int // inclusive lower bound for CALL_SMS_TELEGRAM
	MediumConfidence int // inclusive lower bound for SMS_TELEGRAM
	TradeTTL         time.Duration
	ManualLevels     []string
}

// RunSummary reports what one pipeline run did.
type RunSummary struct {
	Symbol     string              `json:"symbol"`
	Status     models.SignalStatus `json:"status"`
	TradeID    string              `json:"trade_id,omitempty"`
	Duplicate  bool                `json:"duplicate,omitempty"`
	AlertType  models.AlertType    `json:"alert_type,omitempty"`
	AlertSent  bool                `json:"alert_sent"`
	DurationMs int64               `json:"duration_ms"`
	Error      string              `json:"error,omitempty"`
}

// TradeSignalPipeline aggregates a market data window, asks the AI
// collaborator for a verdict, and turns unique TRADE_IDENTIFIED verdicts
// into persisted, alert-dispatched trades. Safe under concurrent invocation
// for the same symbol: correctness rests on the store's unique dedupe-key
// insert, not on the scheduler preventing overlap.
type TradeSignalPipeline struct {
	events   marketdata.EventSource
	candles  marketdata.CandleSource
	analyzer ai.Analyzer
	trades   TradeRecorder
	alerts   alerts.Dispatcher
	cfg      Config
}

// NewTradeSignalPipeline wires the pipeline's collaborators.
func NewTradeSignalPipeline(events marketdata.EventSource, candles marketdata.CandleSource,
	analyzer ai.Analyzer, trades TradeRecorder, dispatcher alerts.Dispatcher, cfg Config) *TradeSignalPipeline {
	return &TradeSignalPipeline{
		events:   events,
		candles:  candles,
		analyzer: analyzer,
		trades:   trades,
		alerts:   dispatcher,
		cfg:      cfg,
	}
}

// Run executes one pipeline pass for a symbol. A non-identified verdict is
// a normal successful run; transient collaborator failures and parse
// failures abort the run with an error and persist nothing.
func (p *TradeSignalPipeline) Run(ctx context.Context, symbol string) (*RunSummary, error) {
	started := time.Now()
	summary := &RunSummary{Symbol: symbol}
	defer func() { summary.DurationMs = time.Since(started).Milliseconds() }()
	log := logrus.WithField("symbol", symbol)

	payload, err := p.buildPayload(ctx, symbol)
	if err != nil {
		return summary, err
	}

	signal, err := p.analyzer.Analyze(ctx, payload)
	if err != nil {
		return summary, err
	}
	summary.Status = signal.Status

	if signal.Status != models.SignalTradeIdentified {
		log.WithField("status", signal.Status).Debug("no trade identified")
		return summary, nil
	}

	if err := signal.Validate(); err != nil {
		return summary, err
	}

	now := time.Now().UTC()
	trade := p.buildTrade(symbol, signal, now)

	if err := p.trades.Insert(ctx, trade); err != nil {
		if errors.Is(err, models.ErrDuplicateSignal) {
			// Not an error: another run already recorded this setup in
			// this hour bucket. Surface it only as an observability event.
			log.WithField("dedupe_key", trade.DedupeKey).Info("duplicate signal suppressed")
			summary.Duplicate = true
			return summary, nil
		}
		return summary, fmt.Errorf("failed to persist identified trade: %w", err)
	}
	summary.TradeID = trade.ID
	log = log.WithFields(logrus.Fields{"trade": trade.ID, "confidence": trade.Confidence})

	tier := ClassifyConfidence(trade.Confidence, p.cfg.HighConfidence, p.cfg.MediumConfidence)
	summary.AlertType = tier

	if tier == models.AlertLogOnly {
		log.Info("trade identified below alert threshold")
		return summary, nil
	}

	// Alert delivery is best-effort. A failed dispatch leaves the trade
	// IDENTIFIED with alert_sent=false; it is not retried here.
	if err := p.alerts.Dispatch(ctx, tier, trade); err != nil {
		log.WithError(err).Warn("alert dispatch failed")
		return summary, nil
	}

	sentAt := time.Now().UTC()
	if err := p.trades.MarkAlerted(ctx, trade.ID, tier, sentAt); err != nil {
		log.WithError(err).Error("failed to mark trade alerted")
	} else {
		summary.AlertSent = true
	}

	log.WithField("tier", tier).Info("trade identified and alerted")
	return summary, nil
}

// RunAll runs the pipeline for every configured symbol sequentially and
// never aborts the batch on a per-symbol failure.
func (p *TradeSignalPipeline) RunAll(ctx context.Context) []RunSummary {
	summaries := make([]RunSummary, 0, len(p.cfg.Symbols))
	for _, symbol := range p.cfg.Symbols {
		summary, err := p.Run(ctx, symbol)
		if err != nil {
			summary.Error = err.Error()
		}
		summaries = append(summaries, *summary)
	}
	return summaries
}

// buildPayload gathers the recent event window and multi-timeframe candle
// context. No scheduler lock is held while these collaborators are awaited.
func (p *TradeSignalPipeline) buildPayload(ctx context.Context, symbol string) (*ai.AnalysisPayload, error) {
	events, err := p.events.RecentEvents(ctx, symbol, p.cfg.EventLookback)
	if err != nil {
		return nil, &models.TransientError{Op: "event fetch", Err: err}
	}

	candles := make([]ai.TimeframeCandles, 0, len(p.cfg.Timeframes))
	for _, tf := range p.cfg.Timeframes {
		bars, err := p.candles.RecentCandles(ctx, symbol, tf, p.cfg.CandleCount)
		if err != nil {
			return nil, err
		}
		candles = append(candles, ai.TimeframeCandles{Timeframe: tf, Candles: bars})
	}

	now := time.Now().UTC()
	return &ai.AnalysisPayload{
		Symbol:       symbol,
		Session:      ai.SessionLabel(now),
		GeneratedAt:  now,
		Events:       events,
		Candles:      candles,
		ManualLevels: p.cfg.ManualLevels,
	}, nil
}

// buildTrade snapshots a validated verdict into the persisted record.
func (p *TradeSignalPipeline) buildTrade(symbol string, signal *models.TradeSignal, now time.Time) *models.IdentifiedTrade {
	trade := &models.IdentifiedTrade{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Direction:    signal.Direction,
		IdentifiedAt: now,
		Confidence:   signal.Confidence,
		Status:       models.TradeStatusIdentified,
		Entry: models.EntrySnapshot{
			ZoneType: signal.Entry.ZoneType,
			Zone:     signal.Entry.Zone,
			Price:    signal.Entry.Price,
		},
		Narrative: signal.Narrative,
		DedupeKey: DedupeKey(symbol, signal.Direction, signal.Entry.Zone, now),
		ExpiresAt: now.Add(p.cfg.TradeTTL),
	}
	if signal.Stop != nil {
		trade.Stop = models.StopSnapshot{Placement: signal.Stop.Placement, Price: signal.Stop.Price}
	}
	if len(signal.Targets) > 0 {
		trade.Targets = append([]decimal.Decimal(nil), signal.Targets...)
	}
	return trade
}

// DedupeKey builds the composite key that suppresses repeats of the same
// setup. Bucketing is by calendar hour in UTC: the same setup re-identified
// in a later hour is a new candidate.
func DedupeKey(symbol string, direction models.TradeDirection, entryZone string, at time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		strings.ToUpper(symbol), direction, entryZone, at.UTC().Format("2006010215"))
}

// ClassifyConfidence maps AI confidence to an alert tier. Both thresholds
// are inclusive on the lower bound.
func ClassifyConfidence(confidence, high, medium int) models.AlertType {
	switch {
	case confidence >= high:
		return models.AlertCallSMSTelegram
	case confidence >= medium:
		return models.AlertSMSTelegram
	default:
		return models.AlertLogOnly
	}
}
