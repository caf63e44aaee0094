package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/pipeline"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// DailyRunJob executes the full signal pipeline for the current date.
// The orchestrator's idempotency key makes a rescheduled or retried
// run for the same date a no-op.
type DailyRunJob struct {
	orchestrator *pipeline.Orchestrator
	logger       *logger.Logger
}

func NewDailyRunJob(orch *pipeline.Orchestrator, log *logger.Logger) *DailyRunJob {
	return &DailyRunJob{orchestrator: orch, logger: log}
}

func (j *DailyRunJob) Name() string {
	return "daily_run"
}

// Schedule runs after bar collection, weekdays at 17:00.
func (j *DailyRunJob) Schedule() string {
	return "0 0 17 * * 1-5"
}

func (j *DailyRunJob) Run(ctx context.Context) error {
	result, err := j.orchestrator.Run(ctx, pipeline.RunConfig{
		AsOf: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	if result.AlreadyDone {
		j.logger.WithField("key", result.Key).Info("Pipeline already ran for today")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"regime":   result.Regime,
		"computed": result.Computed,
		"skipped":  result.Skipped,
		"alerts":   result.Alerts,
	}).Info("Scheduled pipeline run completed")
	return nil
}
