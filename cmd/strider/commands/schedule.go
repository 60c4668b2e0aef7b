package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmarsh/strider/internal/jobs"
	"github.com/dmarsh/strider/internal/scan"
	"github.com/dmarsh/strider/internal/store"
	"github.com/dmarsh/strider/pkg/config"
	"github.com/dmarsh/strider/pkg/database"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the scheduler with the post-close daily scan",
	Long: `Starts a long-lived process that scans the latest session on a
cron schedule (SCAN_CRON, default 30 16 * * MON-FRI). Non-trading days
are skipped. Runs persist to Postgres when DATABASE_URL is set.

Example:
  strider schedule --tickers-file universe.txt --buffer-days 1500`,
	RunE: runScheduler,
}

var (
	scheduleBufferDays int
	scheduleWorkers    int
	scheduleRunNow     bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().IntVar(&scheduleBufferDays, "buffer-days", 1500, "calendar days of history before each scan day")
	scheduleCmd.Flags().IntVar(&scheduleWorkers, "workers", 8, "concurrent fetch/detect workers")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "run the daily scan immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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

	var saver jobs.RunSaver
	if cfg.Database.URL != "" {
		db, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		saver = store.NewRepository(db.Pool)
	} else {
		log.Warn("DATABASE_URL not set, run persistence disabled")
	}

	source := newDataSource(cfg, log, true)
	orchestrator := scan.New(provider, source, scan.Options{Workers: scheduleWorkers}, log)
	job := jobs.NewDailyScanJob(orchestrator, params, saver, cfg.ScanCron, scheduleBufferDays, log)

	scheduler := jobs.NewScheduler(log)
	if err := scheduler.AddJob(job); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if scheduleRunNow {
		if err := scheduler.RunNow(job.Name()); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("Shutdown signal received")
	return nil
}
