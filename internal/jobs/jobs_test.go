package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/scanconfig"
	"github.com/dmarsh/strider/pkg/logger"
)

type recordingScanner struct {
	windows []contracts.ScanWindow
	err     error
}

func (r *recordingScanner) Scan(_ context.Context, window contracts.ScanWindow, _ scanconfig.Params) (*contracts.ScanResult, error) {
	r.windows = append(r.windows, window)
	if r.err != nil {
		return nil, r.err
	}
	return &contracts.ScanResult{Signals: []contracts.Signal{}}, nil
}

type recordingSaver struct {
	saved int
}

func (r *recordingSaver) SaveRun(context.Context, contracts.ScanWindow, time.Time, *contracts.ScanResult) (int64, error) {
	r.saved++
	return int64(r.saved), nil
}

func newJob(scanner Scanner, saver RunSaver) *DailyScanJob {
	return NewDailyScanJob(scanner, scanconfig.Default(), saver, "30 16 * * MON-FRI", 1500, logger.Nop())
}

func TestDailyScanJob_RunsOnTradingDay(t *testing.T) {
	scanner := &recordingScanner{}
	saver := &recordingSaver{}
	job := newJob(scanner, saver)
	job.now = func() time.Time { return time.Date(2026, 1, 6, 16, 30, 0, 0, time.UTC) } // Tuesday

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, scanner.windows, 1)

	w := scanner.windows[0]
	d0 := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, d0, w.D0Start)
	assert.Equal(t, d0, w.D0End)
	assert.Equal(t, d0.AddDate(0, 0, -1500), w.HistoricalStart)
	assert.Equal(t, 1, saver.saved)
}

func TestDailyScanJob_SkipsNonTradingDays(t *testing.T) {
	scanner := &recordingScanner{}
	job := newJob(scanner, nil)

	for _, when := range []time.Time{
		time.Date(2026, 1, 4, 16, 30, 0, 0, time.UTC),   // Sunday
		time.Date(2026, 1, 1, 16, 30, 0, 0, time.UTC),   // New Year's Day
		time.Date(2026, 12, 25, 16, 30, 0, 0, time.UTC), // Christmas
	} {
		job.now = func() time.Time { return when }
		require.NoError(t, job.Run(context.Background()))
	}
	assert.Empty(t, scanner.windows)
}

func TestDailyScanJob_ScanErrorPropagates(t *testing.T) {
	scanner := &recordingScanner{err: errors.New("source down")}
	job := newJob(scanner, nil)
	job.now = func() time.Time { return time.Date(2026, 1, 6, 16, 30, 0, 0, time.UTC) }

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily scan for 2026-01-06")
}

type countingJob struct {
	runs int
	fail int // fail the first n runs
}

func (c *countingJob) Name() string     { return "counting" }
func (c *countingJob) Schedule() string { return "* * * * *" }
func (c *countingJob) Run(context.Context) error {
	c.runs++
	if c.runs <= c.fail {
		return errors.New("transient")
	}
	return nil
}

func TestScheduler_AddAndRunNow(t *testing.T) {
	s := NewScheduler(logger.Nop())
	s.retryDelay = time.Millisecond

	job := &countingJob{fail: 1}
	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate names rejected")

	require.NoError(t, s.RunNow("counting"))
	assert.Equal(t, 2, job.runs, "one failure, one retry success")

	history := s.History("counting")
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)

	assert.Error(t, s.RunNow("missing"))
}

func TestScheduler_RejectsBadCronExpression(t *testing.T) {
	s := NewScheduler(logger.Nop())
	err := s.AddJob(NewDailyScanJob(&recordingScanner{}, scanconfig.Default(), nil, "not a cron", 10, logger.Nop()))
	require.Error(t, err)
}
