package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dbehnke/pccc/pkg/database"
	"github.com/dbehnke/pccc/pkg/logger"
	"github.com/dbehnke/pccc/pkg/metrics"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunStore is the run history the API reads from
type RunStore interface {
	GetRecent(limit int) ([]database.BenchmarkRun, error)
	GetByRunID(runID string) (*database.BenchmarkRun, error)
	GetByAlgorithm(algorithm string, limit int) ([]database.BenchmarkRun, error)
	GetByBlockSize(blockSize int, limit int) ([]database.BenchmarkRun, error)
}

// TotalsSource reports live counters
type TotalsSource interface {
	Totals() metrics.Totals
}

// API handles REST API endpoints
type API struct {
	logger  *logger.Logger
	runs    RunStore
	totals  TotalsSource
	started time.Time
}

// NewAPI creates a new API instance. runs and totals may be nil.
func NewAPI(log *logger.Logger, runs RunStore, totals TotalsSource) *API {
	return &API{
		logger:  log,
		runs:    runs,
		totals:  totals,
		started: time.Now(),
	}
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "running",
		"service": "pccc-bench",
		"version": GetVersionInfo(),
		"uptime":  time.Since(a.started).Round(time.Second).String(),
		"storage": a.runs != nil,
	}
	if a.totals != nil {
		response["totals"] = a.totals.Totals()
	}
	a.writeJSON(w, http.StatusOK, response)
}

// HandleRuns handles /api/runs with optional limit, algorithm and block_size filters
func (a *API) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		a.writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	q := r.URL.Query()
	limit := defaultRunLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	var (
		runs []database.BenchmarkRun
		err  error
	)
	switch {
	case q.Get("algorithm") != "":
		runs, err = a.runs.GetByAlgorithm(q.Get("algorithm"), limit)
	case q.Get("block_size") != "":
		n, convErr := strconv.Atoi(q.Get("block_size"))
		if convErr != nil || n <= 0 {
			a.writeError(w, http.StatusBadRequest, "block_size must be a positive integer")
			return
		}
		runs, err = a.runs.GetByBlockSize(n, limit)
	default:
		runs, err = a.runs.GetRecent(limit)
	}
	if err != nil {
		a.logger.Error("Failed to query runs", logger.Error(err))
		a.writeError(w, http.StatusInternalServerError, "failed to query runs")
		return
	}
	if runs == nil {
		runs = []database.BenchmarkRun{}
	}
	a.writeJSON(w, http.StatusOK, runs)
}

// HandleRun handles /api/runs/{id}
func (a *API) HandleRun(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		a.writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	run, err := a.runs.GetByRunID(r.PathValue("id"))
	if errors.Is(err, database.ErrRunNotFound) {
		a.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		a.logger.Error("Failed to load run", logger.String("run_id", r.PathValue("id")), logger.Error(err))
		a.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	a.writeJSON(w, http.StatusOK, run)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("Failed to encode response", logger.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}
