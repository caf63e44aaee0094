package paper

import (
	"context"
	"fmt"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/state"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// Book applies paper fills against stored positions. Read-modify-write
// per fill: load the live row, run the lifecycle transition, persist
// the result.
type Book struct {
	repo   contracts.PositionRepository
	logger *logger.Logger
}

// NewBook creates a new paper trading book.
func NewBook(repo contracts.PositionRepository, log *logger.Logger) *Book {
	return &Book{repo: repo, logger: log}
}

// Apply executes one fill and returns the resulting position.
func (b *Book) Apply(ctx context.Context, fill state.Fill) (*contracts.PaperPosition, error) {
	pos, err := b.repo.GetLive(ctx, fill.Symbol)
	if err != nil {
		return nil, fmt.Errorf("load live position for %s: %w", fill.Symbol, err)
	}

	next, err := state.ApplyFill(pos, fill)
	if err != nil {
		return nil, err
	}

	if err := b.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save position for %s: %w", fill.Symbol, err)
	}

	b.logger.WithFields(map[string]interface{}{
		"symbol": fill.Symbol,
		"kind":   fill.Kind,
		"price":  fill.Price,
		"shares": next.Shares,
		"state":  next.State,
	}).Info("Paper fill applied")

	return next, nil
}
