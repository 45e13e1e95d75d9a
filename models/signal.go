package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SignalStatus is the AI collaborator's verdict on whether a tradeable
// setup exists in the analyzed window.
type SignalStatus string

const (
	SignalTradeIdentified  SignalStatus = "TRADE_IDENTIFIED"
	SignalNoSetup          SignalStatus = "NO_SETUP"
	SignalInsufficientData SignalStatus = "INSUFFICIENT_DATA"
	SignalError            SignalStatus = "ERROR"
)

// SignalEntry describes where the AI wants to enter.
type SignalEntry struct {
	ZoneType string          `json:"zone_type"`
	Zone     string          `json:"zone"`
	Price    decimal.Decimal `json:"price"`
}

// SignalStop describes the protective stop.
type SignalStop struct {
	Placement string          `json:"placement"`
	Price     decimal.Decimal `json:"price"`
}

// TradeSignal is the structured verdict parsed from the AI collaborator's
// output. It is ephemeral; only TRADE_IDENTIFIED verdicts that survive
// validation and deduplication become IdentifiedTrade records.
type TradeSignal struct {
	Status            SignalStatus      `json:"status"`
	Direction         TradeDirection    `json:"direction,omitempty"`
	Confidence        int               `json:"confidence"`
	Entry             *SignalEntry      `json:"entry,omitempty"`
	Stop              *SignalStop       `json:"stop,omitempty"`
	Targets           []decimal.Decimal `json:"targets,omitempty"`
	Narrative         string            `json:"narrative,omitempty"`
	TriggerConditions []string          `json:"trigger_conditions,omitempty"`
	Invalidations     []string          `json:"invalidations,omitempty"`
}

// Validate checks the fields a TRADE_IDENTIFIED verdict must carry before
// it can be persisted. Non-identified verdicts are always valid.
func (s *TradeSignal) Validate() error {
	switch s.Status {
	case SignalTradeIdentified:
	case SignalNoSetup, SignalInsufficientData, SignalError:
		return nil
	default:
		return &ParseError{Field: "status", Reason: fmt.Sprintf("unknown signal status %q", s.Status)}
	}

	if s.Confidence < 0 || s.Confidence > 100 {
		return &ParseError{Field: "confidence", Reason: fmt.Sprintf("confidence %d outside [0,100]", s.Confidence)}
	}
	if s.Direction != DirectionLong && s.Direction != DirectionShort {
		return &ParseError{Field: "direction", Reason: fmt.Sprintf("invalid direction %q", s.Direction)}
	}
	if s.Entry == nil || s.Entry.Zone == "" {
		return &ParseError{Field: "entry.zone", Reason: "entry zone is required for an identified trade"}
	}
	return nil
}
