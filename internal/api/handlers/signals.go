package handlers

import (
	"net/http"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// SignalsHandler serves the append-only signal log.
type SignalsHandler struct {
	repo   contracts.SignalRepository
	logger *logger.Logger
}

func NewSignalsHandler(repo contracts.SignalRepository, log *logger.Logger) *SignalsHandler {
	return &SignalsHandler{repo: repo, logger: log}
}

// List returns recent signals, optionally filtered by symbol.
// GET /api/v1/signals?symbol=NVDA&limit=50
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 50, 500)
	symbol := r.URL.Query().Get("symbol")

	var (
		signals []contracts.Signal
		err     error
	)
	if symbol != "" {
		signals, err = h.repo.ListBySymbol(ctx, symbol, limit)
	} else {
		signals, err = h.repo.ListRecent(ctx, limit)
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to list signals")
		respondError(w, http.StatusInternalServerError, "Failed to list signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"signals": signals,
		"count":   len(signals),
	})
}
