package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeDirection is the side of an identified setup.
type TradeDirection string

const (
	DirectionLong  TradeDirection = "LONG"
	DirectionShort TradeDirection = "SHORT"
)

// TradeStatus tracks an identified trade through its lifecycle.
type TradeStatus string

const (
	TradeStatusIdentified  TradeStatus = "IDENTIFIED"
	TradeStatusAlerted     TradeStatus = "ALERTED"
	TradeStatusExpired     TradeStatus = "EXPIRED"
	TradeStatusCancelled   TradeStatus = "CANCELLED"
	TradeStatusTaken       TradeStatus = "TAKEN"
	TradeStatusInvalidated TradeStatus = "INVALIDATED"
)

// AlertType is the alert-channel intensity derived from AI confidence.
type AlertType string

const (
	AlertCallSMSTelegram AlertType = "CALL_SMS_TELEGRAM" // confidence >= high threshold
	AlertSMSTelegram     AlertType = "SMS_TELEGRAM"      // medium <= confidence < high
	AlertLogOnly         AlertType = "LOG_ONLY"          // below medium, no external dispatch
)

// EntrySnapshot captures the entry zone the AI identified.
type EntrySnapshot struct {
	ZoneType string          `bson:"zone_type" json:"zone_type"`
	Zone     string          `bson:"zone" json:"zone"`
	Price    decimal.Decimal `bson:"price" json:"price"`
}

// StopSnapshot captures the protective stop placement.
type StopSnapshot struct {
	Placement string          `bson:"placement" json:"placement"`
	Price     decimal.Decimal `bson:"price" json:"price"`
}

// IdentifiedTrade is the persisted record of a unique TRADE_IDENTIFIED
// verdict. Records are never deleted; terminal statuses close them out.
type IdentifiedTrade struct {
	ID           string            `bson:"_id" json:"id"`
	Symbol       string            `bson:"symbol" json:"symbol"`
	Direction    TradeDirection    `bson:"direction" json:"direction"`
	IdentifiedAt time.Time         `bson:"identified_at" json:"identified_at"`
	Confidence   int               `bson:"confidence" json:"confidence"`
	Status       TradeStatus       `bson:"status" json:"status"`
	Entry        EntrySnapshot     `bson:"entry" json:"entry"`
	Stop         StopSnapshot      `bson:"stop" json:"stop"`
	Targets      []decimal.Decimal `bson:"targets" json:"targets"`
	Narrative    string            `bson:"narrative,omitempty" json:"narrative,omitempty"`
	DedupeKey    string            `bson:"dedupe_key" json:"dedupe_key"`
	AlertSent    bool              `bson:"alert_sent" json:"alert_sent"`
	AlertSentAt  *time.Time        `bson:"alert_sent_at,omitempty" json:"alert_sent_at,omitempty"`
	AlertType    AlertType         `bson:"alert_type,omitempty" json:"alert_type,omitempty"`
	ExpiresAt    time.Time         `bson:"expires_at" json:"expires_at"`
	CreatedAt    time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at" json:"updated_at"`
}

// activeStatuses are the only states a trade can transition out of.
var activeStatuses = map[TradeStatus]bool{
	TradeStatusIdentified: true,
	TradeStatusAlerted:    true,
}

// IsTerminal reports whether no further transitions are allowed.
func (s TradeStatus) IsTerminal() bool {
	switch s {
	case TradeStatusExpired, TradeStatusTaken, TradeStatusInvalidated, TradeStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo validates a lifecycle transition. ALERTED is only reachable
// from IDENTIFIED; terminal states are reachable from any active state.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	if !activeStatuses[s] {
		return false
	}
	switch next {
	case TradeStatusAlerted:
		return s == TradeStatusIdentified
	case TradeStatusExpired, TradeStatusTaken, TradeStatusInvalidated, TradeStatusCancelled:
		return true
	}
	return false
}

// TradeStatistics is the read-only aggregate produced by the lifecycle
// manager over a trailing window.
type TradeStatistics struct {
	WindowHours   int                      `json:"window_hours"`
	Total         int64                    `json:"total"`
	ByStatus      map[TradeStatus]int64    `json:"by_status"`
	BySymbol      map[string]int64         `json:"by_symbol"`
	ByDirection   map[TradeDirection]int64 `json:"by_direction"`
	AvgConfidence float64                  `json:"avg_confidence"`
}
