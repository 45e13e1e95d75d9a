package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
)

// Dispatcher delivers a tiered alert for a freshly identified trade.
// Delivery is best-effort: there is no retry and no delivery guarantee.
type Dispatcher interface {
	Dispatch(ctx context.Context, tier models.AlertType, trade *models.IdentifiedTrade) error
}

// MultiChannelDispatcher fans an alert out to the channels the tier calls
// for: Telegram and SMS for both external tiers, plus a voice call webhook
// for the high-confidence tier.
type MultiChannelDispatcher struct {
	http *resty.Client

	telegramBotToken string
	telegramChatID   string
	smsWebhookURL    string
	callWebhookURL   string
}

// NewMultiChannelDispatcher builds a dispatcher from channel credentials.
// Channels with empty configuration are skipped.
func NewMultiChannelDispatcher(telegramBotToken, telegramChatID, smsWebhookURL, callWebhookURL string) *MultiChannelDispatcher {
	return &MultiChannelDispatcher{
		http:             resty.New().SetTimeout(10 * time.Second),
		telegramBotToken: telegramBotToken,
		telegramChatID:   telegramChatID,
		smsWebhookURL:    smsWebhookURL,
		callWebhookURL:   callWebhookURL,
	}
}

// Dispatch sends the alert on every configured channel for the tier.
// Succeeds when at least one channel delivered.
func (d *MultiChannelDispatcher) Dispatch(ctx context.Context, tier models.AlertType, trade *models.IdentifiedTrade) error {
	if tier == models.AlertLogOnly {
		return nil
	}

	summary := FormatSummary(trade)
	log := logrus.WithFields(logrus.Fields{"trade": trade.ID, "tier": tier})

	attempted := 0
	delivered := 0

	if d.telegramBotToken != "" && d.telegramChatID != "" {
		attempted++
		if err := d.sendTelegram(ctx, summary); err != nil {
			log.WithError(err).Warn("telegram alert failed")
		} else {
			delivered++
		}
	}
	if d.smsWebhookURL != "" {
		attempted++
		if err := d.postWebhook(ctx, d.smsWebhookURL, summary); err != nil {
			log.WithError(err).Warn("sms alert failed")
		} else {
			delivered++
		}
	}
	if tier == models.AlertCallSMSTelegram && d.callWebhookURL != "" {
		attempted++
		if err := d.postWebhook(ctx, d.callWebhookURL, summary); err != nil {
			log.WithError(err).Warn("call alert failed")
		} else {
			delivered++
		}
	}

	if attempted == 0 {
		return fmt.Errorf("no alert channels configured for tier %s", tier)
	}
	if delivered == 0 {
		return fmt.Errorf("all %d alert channels failed for tier %s", attempted, tier)
	}

	log.WithFields(logrus.Fields{"delivered": delivered, "attempted": attempted}).Info("alert dispatched")
	return nil
}

func (d *MultiChannelDispatcher) sendTelegram(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", d.telegramBotToken)
	resp, err := d.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"chat_id": d.telegramChatID, "text": text}).
		Post(endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("telegram returned %s", resp.Status())
	}
	return nil
}

func (d *MultiChannelDispatcher) postWebhook(ctx context.Context, url, text string) error {
	resp, err := d.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"message": text}).
		Post(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	return nil
}

// FormatSummary renders the one-line trade summary used on every channel.
func FormatSummary(trade *models.IdentifiedTrade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s @ %s (%s)", trade.Direction, trade.Symbol, trade.Entry.Zone, trade.Entry.Price)
	fmt.Fprintf(&b, " | stop %s", trade.Stop.Price)
	if len(trade.Targets) > 0 {
		parts := make([]string, len(trade.Targets))
		for i, t := range trade.Targets {
			parts[i] = t.String()
		}
		fmt.Fprintf(&b, " | targets %s", strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, " | confidence %d", trade.Confidence)
	return b.String()
}
