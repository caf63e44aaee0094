package state

import (
	"fmt"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// FillKind is the paper order type being applied to a position.
type FillKind string

const (
	FillBuy  FillKind = "BUY"
	FillAdd  FillKind = "ADD"
	FillTrim FillKind = "TRIM"
	FillSell FillKind = "SELL"
)

// Fill is a simulated execution at a price for a share quantity.
// TRIM and SELL quantities are derived from the position, not supplied.
type Fill struct {
	Symbol string
	Kind   FillKind
	Price  float64
	Shares int64
	Stop   float64 // initial stop, BUY only
	At     time.Time
}

// ApplyFill advances the paper position lifecycle. A nil position (or a
// CLOSED one) only accepts BUY, which starts a fresh lifecycle; CLOSED
// positions are never reopened. Mutating fills return the updated
// position; illegal transitions return an error and leave the input
// untouched.
func ApplyFill(pos *contracts.PaperPosition, fill Fill) (*contracts.PaperPosition, error) {
	if fill.Price <= 0 {
		return nil, fmt.Errorf("fill price must be positive, got %.4f", fill.Price)
	}

	switch fill.Kind {
	case FillBuy:
		if pos.Live() {
			return nil, fmt.Errorf("BUY fill on live position %s", pos.Symbol)
		}
		if fill.Shares < 1 {
			return nil, fmt.Errorf("BUY fill needs at least 1 share")
		}
		return &contracts.PaperPosition{
			Symbol:    symbolOf(pos, fill),
			State:     contracts.PositionOpen,
			Shares:    fill.Shares,
			AvgEntry:  fill.Price,
			StopPrice: fill.Stop,
			OpenedAt:  fill.At,
		}, nil

	case FillAdd:
		if pos == nil || pos.State != contracts.PositionOpen {
			return nil, fmt.Errorf("ADD fill requires an OPEN position")
		}
		if fill.Shares < 1 {
			return nil, fmt.Errorf("ADD fill needs at least 1 share")
		}
		next := *pos
		total := pos.Shares + fill.Shares
		next.AvgEntry = (pos.AvgEntry*float64(pos.Shares) + fill.Price*float64(fill.Shares)) / float64(total)
		next.Shares = total
		return &next, nil

	case FillTrim:
		if !pos.Live() {
			return nil, fmt.Errorf("TRIM fill requires a live position")
		}
		next := *pos
		// Reduce by half, keep at least one share
		trimmed := pos.Shares / 2
		if trimmed < 1 {
			return nil, fmt.Errorf("position too small to trim: %d shares", pos.Shares)
		}
		next.Shares = pos.Shares - trimmed
		next.State = contracts.PositionTrimmed
		return &next, nil

	case FillSell:
		if !pos.Live() {
			return nil, fmt.Errorf("SELL fill requires a live position")
		}
		next := *pos
		next.Shares = 0
		next.State = contracts.PositionClosed
		at := fill.At
		next.ClosedAt = &at
		return &next, nil

	default:
		return nil, fmt.Errorf("unknown fill kind %q", fill.Kind)
	}
}

// TrimShares returns the quantity a TRIM fill will remove.
func TrimShares(pos *contracts.PaperPosition) int64 {
	if pos == nil {
		return 0
	}
	return pos.Shares / 2
}

func symbolOf(pos *contracts.PaperPosition, fill Fill) string {
	if fill.Symbol != "" {
		return fill.Symbol
	}
	if pos != nil {
		return pos.Symbol
	}
	return ""
}
