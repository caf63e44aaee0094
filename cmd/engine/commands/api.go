package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingkaili/ai-trading-signal-engine/internal/api"
	"github.com/mingkaili/ai-trading-signal-engine/internal/api/handlers"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Start the HTTP API server.

Endpoints:
  GET  /health                 - Health check
  GET  /api/v1/signals         - Recent signals (?symbol=, ?limit=)
  GET  /api/v1/positions       - Live paper positions
  GET  /api/v1/sectors/ranks   - Weekly sector rank cohort
  POST /api/v1/runs            - Trigger a pipeline run

Example:
  go run ./cmd/engine api
  go run ./cmd/engine api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	signalsHandler := handlers.NewSignalsHandler(app.signalRepo, app.log)
	positionsHandler := handlers.NewPositionsHandler(app.positionRepo, app.log)
	sectorsHandler := handlers.NewSectorsHandler(app.sectorRepo, app.log)
	runsHandler := handlers.NewRunsHandler(app.orchestrator, app.log)

	router := api.NewRouter(signalsHandler, positionsHandler, sectorsHandler, runsHandler, app.log)
	server := api.New(app.cfg, app.log, router)

	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", app.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
