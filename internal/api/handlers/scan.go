// Package handlers contains the HTTP handlers for the scan API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/scanconfig"
	"github.com/dmarsh/strider/internal/store"
	"github.com/dmarsh/strider/pkg/logger"
)

// Scanner runs one scan. Satisfied by scan.Orchestrator.
type Scanner interface {
	Scan(ctx context.Context, window contracts.ScanWindow, params scanconfig.Params) (*contracts.ScanResult, error)
}

// RunStore persists scan runs. Satisfied by store.Repository; nil
// disables persistence.
type RunStore interface {
	SaveRun(ctx context.Context, window contracts.ScanWindow, startedAt time.Time, result *contracts.ScanResult) (int64, error)
	LatestRuns(ctx context.Context, limit int) ([]store.Run, error)
	SignalsByRun(ctx context.Context, runID int64) ([]contracts.Signal, error)
}

// ScanHandler exposes scan execution and run history.
type ScanHandler struct {
	scanner Scanner
	params  scanconfig.Params
	runs    RunStore
	logger  *logger.Logger
}

func NewScanHandler(scanner Scanner, params scanconfig.Params, runs RunStore, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		scanner: scanner,
		params:  params,
		runs:    runs,
		logger:  log,
	}
}

// ScanRequest selects the window. Dates are YYYY-MM-DD.
type ScanRequest struct {
	HistoricalStart string `json:"historical_start"`
	D0Start         string `json:"d0_start"`
	D0End           string `json:"d0_end"`
}

// ScanResponse wraps the scan result with the persisted run id when
// persistence is enabled.
type ScanResponse struct {
	RunID  int64                 `json:"run_id,omitempty"`
	Result *contracts.ScanResult `json:"result"`
}

// Scan executes a scan synchronously.
// POST /api/v1/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	window, err := req.window()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	startedAt := time.Now().UTC()
	result, err := h.scanner.Scan(ctx, window, h.params)
	if err != nil {
		var cfgErr *contracts.ConfigError
		if errors.As(err, &cfgErr) {
			respondError(w, http.StatusBadRequest, cfgErr.Error())
			return
		}
		h.logger.WithError(err).Error("Scan failed")
		respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	resp := ScanResponse{Result: result}
	if h.runs != nil {
		runID, err := h.runs.SaveRun(ctx, window, startedAt, result)
		if err != nil {
			h.logger.WithError(err).Error("Failed to persist scan run")
			respondError(w, http.StatusInternalServerError, "scan succeeded but persisting the run failed")
			return
		}
		resp.RunID = runID
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListRuns returns recent run headers.
// GET /api/v1/runs
func (h *ScanHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run persistence is disabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be an integer in [1, 500]")
			return
		}
		limit = n
	}

	runs, err := h.runs.LatestRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// RunSignals returns one run's signals.
// GET /api/v1/runs/{id}/signals
func (h *ScanHandler) RunSignals(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run persistence is disabled")
		return
	}

	runID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "run id must be an integer")
		return
	}

	signals, err := h.runs.SignalsByRun(r.Context(), runID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load run signals")
		respondError(w, http.StatusInternalServerError, "failed to load run signals")
		return
	}
	if signals == nil {
		signals = []contracts.Signal{}
	}
	respondJSON(w, http.StatusOK, signals)
}

func (r ScanRequest) window() (contracts.ScanWindow, error) {
	var w contracts.ScanWindow
	var err error
	if w.HistoricalStart, err = parseDay("historical_start", r.HistoricalStart); err != nil {
		return w, err
	}
	if w.D0Start, err = parseDay("d0_start", r.D0Start); err != nil {
		return w, err
	}
	if w.D0End, err = parseDay("d0_end", r.D0End); err != nil {
		return w, err
	}
	return w, nil
}

func parseDay(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &contracts.ConfigError{Field: field, Message: "must be a YYYY-MM-DD date"}
	}
	return t.UTC(), nil
}
