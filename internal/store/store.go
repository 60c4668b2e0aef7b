// Package store persists scan runs and their signals to Postgres.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarsh/strider/internal/contracts"
)

// Run is one persisted scan execution.
type Run struct {
	ID              int64            `json:"id"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	HistoricalStart time.Time        `json:"historical_start"`
	D0Start         time.Time        `json:"d0_start"`
	D0End           time.Time        `json:"d0_end"`
	Counts          contracts.Counts `json:"counts"`
	SignalCount     int              `json:"signal_count"`
}

// Repository reads and writes scan runs.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores the run header, every signal, and every per-unit
// error in one transaction. A persistence failure here is an
// AggregationError: the scan succeeded but its terminal artifact could
// not be produced.
func (r *Repository) SaveRun(ctx context.Context, window contracts.ScanWindow, startedAt time.Time, result *contracts.ScanResult) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, aggErr("begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO scan_runs (started_at, finished_at, historical_start, d0_start, d0_end,
			units_submitted, units_succeeded, units_failed, signal_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, startedAt, time.Now().UTC(), window.HistoricalStart, window.D0Start, window.D0End,
		result.Counts.Submitted, result.Counts.Succeeded, result.Counts.Failed,
		len(result.Signals),
	).Scan(&runID)
	if err != nil {
		return 0, aggErr("insert run: %v", err)
	}

	batch := &pgx.Batch{}
	for _, sig := range result.Signals {
		diag, err := json.Marshal(sig.Diagnostics)
		if err != nil {
			return 0, aggErr("marshal diagnostics for %s: %v", sig.Ticker, err)
		}
		batch.Queue(`
			INSERT INTO scan_signals (run_id, ticker, signal_date, trigger_tag, diagnostics)
			VALUES ($1, $2, $3, $4, $5)
		`, runID, sig.Ticker, sig.Date, sig.TriggerTag, diag)
	}
	for ticker, msg := range result.TickerErrors {
		batch.Queue(`
			INSERT INTO scan_errors (run_id, unit_kind, unit, message)
			VALUES ($1, 'ticker', $2, $3)
		`, runID, ticker, msg)
	}
	for date, msg := range result.DateErrors {
		batch.Queue(`
			INSERT INTO scan_errors (run_id, unit_kind, unit, message)
			VALUES ($1, 'date', $2, $3)
		`, runID, date, msg)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, aggErr("insert signals for run %d: %v", runID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, aggErr("commit run %d: %v", runID, err)
	}
	return runID, nil
}

// SignalsByRun returns a run's signals in the canonical order: date
// descending, ticker ascending.
func (r *Repository) SignalsByRun(ctx context.Context, runID int64) ([]contracts.Signal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ticker, signal_date, trigger_tag, diagnostics
		FROM scan_signals
		WHERE run_id = $1
		ORDER BY signal_date DESC, ticker ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query signals for run %d: %w", runID, err)
	}
	defer rows.Close()

	var signals []contracts.Signal
	for rows.Next() {
		var sig contracts.Signal
		var diag []byte
		if err := rows.Scan(&sig.Ticker, &sig.Date, &sig.TriggerTag, &diag); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		if err := json.Unmarshal(diag, &sig.Diagnostics); err != nil {
			return nil, fmt.Errorf("unmarshal diagnostics for %s: %w", sig.Ticker, err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// LatestRuns returns the most recent run headers, newest first.
func (r *Repository) LatestRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, started_at, finished_at, historical_start, d0_start, d0_end,
			units_submitted, units_succeeded, units_failed, signal_count
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt,
			&run.HistoricalStart, &run.D0Start, &run.D0End,
			&run.Counts.Submitted, &run.Counts.Succeeded, &run.Counts.Failed,
			&run.SignalCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func aggErr(format string, args ...interface{}) *contracts.AggregationError {
	return &contracts.AggregationError{Message: fmt.Sprintf(format, args...)}
}
