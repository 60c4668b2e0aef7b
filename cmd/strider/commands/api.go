package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmarsh/strider/internal/api"
	"github.com/dmarsh/strider/internal/api/handlers"
	"github.com/dmarsh/strider/internal/scan"
	"github.com/dmarsh/strider/internal/store"
	"github.com/dmarsh/strider/pkg/config"
	"github.com/dmarsh/strider/pkg/database"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API.

Endpoints:
  GET  /health                       - health check
  POST /api/v1/scan                  - run a scan synchronously
  GET  /api/v1/runs                  - recent persisted runs
  GET  /api/v1/runs/{id}/signals     - one run's signals

Run persistence needs DATABASE_URL; without it the scan endpoint still
works but runs are not stored.

Example:
  strider api --port 8080 --tickers-file universe.txt`,
	RunE: runAPIServer,
}

var (
	apiPort    string
	apiWorkers int
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (defaults to API_PORT)")
	apiCmd.Flags().IntVar(&apiWorkers, "workers", 8, "concurrent fetch/detect workers")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.APIPort = apiPort
	}
	log := newLogger(cfg)

	params, err := loadParams()
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	provider, err := resolveUniverse(cfg, log)
	if err != nil {
		return err
	}

	var runs handlers.RunStore
	if cfg.Database.URL != "" {
		db, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		runs = store.NewRepository(db.Pool)
		log.Info("Run persistence enabled")
	} else {
		log.Warn("DATABASE_URL not set, run persistence disabled")
	}

	source := newDataSource(cfg, log, true)
	orchestrator := scan.New(provider, source, scan.Options{Workers: apiWorkers}, log)
	scanHandler := handlers.NewScanHandler(orchestrator, params, runs, log)

	server := api.NewServer(cfg.APIPort, api.NewRouter(scanHandler, log), log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
