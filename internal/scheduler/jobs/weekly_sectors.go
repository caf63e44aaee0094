package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/alert"
	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/state"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// sectorRanker recomputes and stores the weekly sector cohort.
type sectorRanker interface {
	RankSectors(ctx context.Context, asOf time.Time) ([]contracts.SectorMetric, error)
}

// WeeklySectorsJob recomputes the sector rank cohort for the week
// ending on the most recent Friday and sends the ranked summary as a
// digest alert. Daily runs only read the stored cohort, so this is
// the single writer for sector metrics.
type WeeklySectorsJob struct {
	ranker   sectorRanker
	notifier alert.Notifier
	logger   *logger.Logger
}

func NewWeeklySectorsJob(ranker sectorRanker, notifier alert.Notifier, log *logger.Logger) *WeeklySectorsJob {
	return &WeeklySectorsJob{ranker: ranker, notifier: notifier, logger: log}
}

func (j *WeeklySectorsJob) Name() string {
	return "weekly_sectors"
}

// Schedule runs Friday evening after the close.
func (j *WeeklySectorsJob) Schedule() string {
	return "0 30 17 * * 5"
}

func (j *WeeklySectorsJob) Run(ctx context.Context) error {
	metrics, err := j.ranker.RankSectors(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("rank sectors: %w", err)
	}

	if len(metrics) > 0 {
		digest := state.Alert{
			Kind:    state.AlertDigest,
			Message: digestMessage(metrics),
		}
		// The cohort is already stored; a delivery failure only
		// costs the notification.
		if err := j.notifier.Notify(ctx, digest); err != nil {
			j.logger.WithError(err).Warn("Weekly digest delivery failed")
		}
	}

	j.logger.WithField("sectors", len(metrics)).Info("Weekly sector ranking completed")
	return nil
}

// digestMessage renders the ranked cohort as a one-line summary,
// best sector first.
func digestMessage(metrics []contracts.SectorMetric) string {
	parts := make([]string, 0, len(metrics))
	for _, m := range metrics {
		parts = append(parts, fmt.Sprintf("%d. %s (%.2f)", m.Rank, m.SectorID, m.Composite))
	}
	weekEnd := metrics[0].WeekEnd.Format("2006-01-02")
	return fmt.Sprintf("Sector ranks for week ending %s: %s", weekEnd, strings.Join(parts, ", "))
}
