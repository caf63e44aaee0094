package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check database and redis connectivity",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := app.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Database: DOWN (%s)\n", health.Error)
	} else {
		fmt.Printf("Database: OK (%s, %d/%d conns)\n",
			health.ResponseTime, health.Stats.TotalConns, health.Stats.MaxConns)
	}

	if !app.redis.Enabled() {
		fmt.Println("Redis:    disabled")
	} else if err := app.redis.Redis().Ping(ctx).Err(); err != nil {
		fmt.Printf("Redis:    DOWN (%v)\n", err)
	} else {
		fmt.Println("Redis:    OK")
	}

	fmt.Printf("Env:      %s\n", app.cfg.Env)
	return nil
}
