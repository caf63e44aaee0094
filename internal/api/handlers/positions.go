package handlers

import (
	"net/http"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// PositionsHandler serves the live paper positions.
type PositionsHandler struct {
	repo   contracts.PositionRepository
	logger *logger.Logger
}

func NewPositionsHandler(repo contracts.PositionRepository, log *logger.Logger) *PositionsHandler {
	return &PositionsHandler{repo: repo, logger: log}
}

// List returns all open and trimmed positions.
// GET /api/v1/positions
func (h *PositionsHandler) List(w http.ResponseWriter, r *http.Request) {
	positions, err := h.repo.ListLive(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list positions")
		respondError(w, http.StatusInternalServerError, "Failed to list positions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}
