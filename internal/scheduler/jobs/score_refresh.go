package jobs

import (
	"context"
	"fmt"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/marketdata"
	"github.com/mingkaili/ai-trading-signal-engine/internal/scoring"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// ScoreRefreshJob keeps AI scores current for the member universe.
// Scores are content-addressed, so unchanged source text short-circuits
// on the store without touching the AI provider.
type ScoreRefreshJob struct {
	service    *scoring.Service
	client     *marketdata.Client
	sectorRepo contracts.SectorRepository
	scoreType  string
	logger     *logger.Logger
}

func NewScoreRefreshJob(
	service *scoring.Service,
	client *marketdata.Client,
	sectorRepo contracts.SectorRepository,
	scoreType string,
	log *logger.Logger,
) *ScoreRefreshJob {
	return &ScoreRefreshJob{
		service:    service,
		client:     client,
		sectorRepo: sectorRepo,
		scoreType:  scoreType,
		logger:     log,
	}
}

func (j *ScoreRefreshJob) Name() string {
	return "score_refresh"
}

// Schedule runs weekday mornings before the open.
func (j *ScoreRefreshJob) Schedule() string {
	return "0 0 7 * * 1-5"
}

func (j *ScoreRefreshJob) Run(ctx context.Context) error {
	sectors, err := j.sectorRepo.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list sectors: %w", err)
	}

	scored := 0
	skipped := 0
	failed := 0
	for _, s := range sectors {
		for _, symbol := range s.Members {
			profile, err := j.client.FetchProfile(ctx, symbol)
			if err != nil {
				failed++
				j.logger.WithFields(map[string]interface{}{
					"symbol": symbol,
					"error":  err.Error(),
				}).Warn("Profile fetch failed")
				continue
			}
			if profile.Description == "" {
				skipped++
				continue
			}

			if _, err := j.service.ScoreText(ctx, symbol, j.scoreType, profile.Description, false); err != nil {
				failed++
				j.logger.WithFields(map[string]interface{}{
					"symbol": symbol,
					"error":  err.Error(),
				}).Warn("Scoring failed")
				continue
			}
			scored++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"scored":  scored,
		"skipped": skipped,
		"failed":  failed,
	}).Info("Score refresh completed")
	return nil
}
