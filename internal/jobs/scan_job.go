package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmarsh/strider/internal/calendar"
	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/scanconfig"
	"github.com/dmarsh/strider/pkg/logger"
)

// Scanner runs one scan. Satisfied by scan.Orchestrator.
type Scanner interface {
	Scan(ctx context.Context, window contracts.ScanWindow, params scanconfig.Params) (*contracts.ScanResult, error)
}

// RunSaver persists a finished run. Satisfied by store.Repository.
type RunSaver interface {
	SaveRun(ctx context.Context, window contracts.ScanWindow, startedAt time.Time, result *contracts.ScanResult) (int64, error)
}

// DailyScanJob scans the most recent session after the close. The
// output window is that single day; the historical buffer reaches back
// BufferDays calendar days.
type DailyScanJob struct {
	scanner    Scanner
	params     scanconfig.Params
	saver      RunSaver // nil disables persistence
	schedule   string
	bufferDays int
	logger     *logger.Logger

	// now is swapped in tests
	now func() time.Time
}

func NewDailyScanJob(scanner Scanner, params scanconfig.Params, saver RunSaver, schedule string, bufferDays int, log *logger.Logger) *DailyScanJob {
	return &DailyScanJob{
		scanner:    scanner,
		params:     params,
		saver:      saver,
		schedule:   schedule,
		bufferDays: bufferDays,
		logger:     log.WithField("job", "daily_scan"),
		now:        time.Now,
	}
}

func (j *DailyScanJob) Name() string     { return "daily_scan" }
func (j *DailyScanJob) Schedule() string { return j.schedule }

func (j *DailyScanJob) Run(ctx context.Context) error {
	today := contracts.Day(j.now().UTC())
	if !calendar.IsTradingDay(today) {
		j.logger.WithField("date", today.Format("2006-01-02")).Info("Not a trading day, skipping scan")
		return nil
	}

	window := j.Window(today)
	startedAt := j.now().UTC()
	result, err := j.scanner.Scan(ctx, window, j.params)
	if err != nil {
		return fmt.Errorf("daily scan for %s: %w", today.Format("2006-01-02"), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":          today.Format("2006-01-02"),
		"signals":       len(result.Signals),
		"ticker_errors": len(result.TickerErrors),
	}).Info("Daily scan finished")

	if j.saver != nil {
		runID, err := j.saver.SaveRun(ctx, window, startedAt, result)
		if err != nil {
			return fmt.Errorf("persist daily scan: %w", err)
		}
		j.logger.WithField("run_id", runID).Info("Daily scan persisted")
	}
	return nil
}

// Window derives the single-day scan window for the given session.
func (j *DailyScanJob) Window(d0 time.Time) contracts.ScanWindow {
	return contracts.ScanWindow{
		HistoricalStart: d0.AddDate(0, 0, -j.bufferDays),
		D0Start:         d0,
		D0End:           d0,
	}
}
