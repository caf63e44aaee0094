package state

import (
	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// AlertKind classifies what an alert is about.
type AlertKind string

const (
	AlertSignal AlertKind = "signal"
	AlertDigest AlertKind = "weekly_digest"
)

// Alert is a single notification-worthy event. The machine returns to
// QUIET in the same evaluation; alerts carry no lifecycle of their own.
type Alert struct {
	Kind    AlertKind
	Symbol  string
	Signal  contracts.SignalType
	Message string
}

// ShouldAlert implements the anti-spam rule. Only action verdicts
// (BUY, SELL, ADD, TRIM) are alert-worthy; WATCH verdicts never alert,
// however many runs a symbol sits in WATCH. Repeats of the same action
// verdict are suppressed by diffing against the last emitted type, so a
// retried run cannot re-notify. hadPrev is false for symbols with no
// emitted signal yet.
func ShouldAlert(prev contracts.SignalType, hadPrev bool, next contracts.SignalType) bool {
	switch next {
	case contracts.SignalBuy, contracts.SignalSell, contracts.SignalAdd, contracts.SignalTrim:
		return !hadPrev || prev != next
	default:
		return false
	}
}
