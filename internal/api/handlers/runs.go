package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/pipeline"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// RunsHandler triggers pipeline runs on demand.
type RunsHandler struct {
	orchestrator *pipeline.Orchestrator
	logger       *logger.Logger
}

func NewRunsHandler(orch *pipeline.Orchestrator, log *logger.Logger) *RunsHandler {
	return &RunsHandler{orchestrator: orch, logger: log}
}

type runRequest struct {
	Date        string `json:"date"` // YYYY-MM-DD, defaults to today
	RankSectors bool   `json:"rank_sectors"`
	Force       bool   `json:"force"`
}

// Trigger runs the pipeline synchronously for the requested date.
// Re-running an already-completed date returns already_done unless
// force is set.
// POST /api/v1/runs
func (h *RunsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	asOf := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	result, err := h.orchestrator.Run(r.Context(), pipeline.RunConfig{
		AsOf:        asOf,
		RankSectors: req.RankSectors,
		Force:       req.Force,
	})
	if err != nil {
		h.logger.WithError(err).Error("Manual pipeline run failed")
		respondError(w, http.StatusInternalServerError, "Pipeline run failed")
		return
	}

	status := http.StatusOK
	if !result.AlreadyDone {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{
		"key":            result.Key,
		"date":           result.AsOf.Format("2006-01-02"),
		"already_done":   result.AlreadyDone,
		"regime":         result.Regime,
		"computed":       result.Computed,
		"skipped":        result.Skipped,
		"sectors_ranked": result.SectorsRanked,
		"verdicts":       result.Verdicts,
		"risk_rejected":  result.RiskRejected,
		"alerts":         result.Alerts,
		"duration_ms":    result.Duration.Milliseconds(),
	})
}
