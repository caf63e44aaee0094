package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingkaili/ai-trading-signal-engine/internal/scheduler"
	"github.com/mingkaili/ai-trading-signal-engine/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the job scheduler",
	Long: `Start the scheduler daemon or inspect its jobs.

Registered jobs:
  daily_bars      - weekdays 16:30, fetch daily bars for the universe
  daily_run       - weekdays 17:00, full signal pipeline
  weekly_sectors  - Friday 17:30, recompute sector ranks
  score_refresh   - weekdays 07:00, refresh AI scores
  cache_cleanup   - nightly 03:00, sweep stale cache keys

Example:
  go run ./cmd/engine scheduler start
  go run ./cmd/engine scheduler list
  go run ./cmd/engine scheduler run daily_run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job statistics",
		RunE:  showSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := buildScheduler(app)
	if err != nil {
		return err
	}

	sched.Start()

	fmt.Println("Scheduler started")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := buildScheduler(app)
	if err != nil {
		return err
	}

	fmt.Println("Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("  %-16s %s\n", name, stat.Schedule)
	}
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	name := args[0]

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := buildScheduler(app)
	if err != nil {
		return err
	}

	fmt.Printf("Running job: %s\n", name)
	if err := sched.RunJob(name); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is async; poll history until the result lands.
	for {
		time.Sleep(200 * time.Millisecond)
		history, err := sched.GetJobHistory(name)
		if err != nil {
			return err
		}
		if len(history.Results) > 0 {
			result := history.Results[len(history.Results)-1]
			if result.Success {
				fmt.Printf("Job %s completed in %s (%d attempts)\n", name, result.Duration, result.Attempts)
				return nil
			}
			return fmt.Errorf("job %s failed: %s", name, result.Error)
		}
	}
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := buildScheduler(app)
	if err != nil {
		return err
	}

	// Stats cover this process only; the daemon keeps its own history.
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("%s\n", name)
		fmt.Printf("  Schedule: %s\n", stat.Schedule)
		fmt.Printf("  Runs:     %d (%d failed, %.0f%% success)\n",
			stat.TotalRuns, stat.FailureCount, stat.SuccessRate*100)
		if stat.LastRun != nil {
			fmt.Printf("  Last run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

// buildScheduler registers all jobs against the wired app.
func buildScheduler(app *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(app.log)

	jobList := []scheduler.Job{
		jobs.NewDailyBarsJob(app.marketClient, app.barRepo, app.sectorRepo, app.log),
		jobs.NewDailyRunJob(app.orchestrator, app.log),
		jobs.NewWeeklySectorsJob(app.orchestrator, app.notifier, app.log),
		jobs.NewScoreRefreshJob(app.scoreService, app.marketClient, app.sectorRepo, "filing", app.log),
		jobs.NewCacheCleanupJob(app.cache, nil, app.log),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}
	return sched, nil
}
