package handlers

import (
	"net/http"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/pipeline"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// SectorsHandler serves the weekly sector rank cohort.
type SectorsHandler struct {
	repo   contracts.SectorRepository
	logger *logger.Logger
}

func NewSectorsHandler(repo contracts.SectorRepository, log *logger.Logger) *SectorsHandler {
	return &SectorsHandler{repo: repo, logger: log}
}

// Ranks returns the rank cohort for a week. Defaults to the week
// ending on the most recent Friday.
// GET /api/v1/sectors/ranks?week_end=2026-02-13
func (h *SectorsHandler) Ranks(w http.ResponseWriter, r *http.Request) {
	weekEnd := pipeline.WeekEndOnOrBefore(time.Now())
	if raw := r.URL.Query().Get("week_end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid week_end, expected YYYY-MM-DD")
			return
		}
		weekEnd = pipeline.WeekEndOnOrBefore(parsed)
	}

	metrics, err := h.repo.GetWeek(r.Context(), weekEnd)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load sector ranks")
		respondError(w, http.StatusInternalServerError, "Failed to load sector ranks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"week_end": weekEnd.Format("2006-01-02"),
		"sectors":  metrics,
		"count":    len(metrics),
	})
}
