package valuation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/modelerr"
	"financial_model/pkg/core/pipeline"
	"financial_model/pkg/core/report"
	"financial_model/pkg/core/scenario"
	"financial_model/pkg/core/store"
	"financial_model/pkg/logging"
)

const maxBodyBytes = 8 << 20

// Request bounds. Anything larger is rejected before any work starts.
const (
	MaxYears     = 100
	MaxSamples   = 100_000
	MaxAxisLen   = 100
	MaxScenarios = 100
)

// RunRequest is the body of POST /api/valuation/run.
type RunRequest struct {
	Historical  map[string][]interface{} `json:"historical"`
	Overrides   assumption.Overrides     `json:"overrides"`
	Years       int                      `json:"years"`
	Scenarios   []scenario.Scenario      `json:"scenarios,omitempty"`
	Sensitivity *SensitivityRequest      `json:"sensitivity,omitempty"`
	MonteCarlo  *MonteCarloRequest       `json:"monte_carlo,omitempty"`
	Save        *bool                    `json:"save,omitempty"` // default true
}

// MonteCarloRequest enables sampling. Fields left out keep the handler's
// configured defaults.
type MonteCarloRequest struct {
	Samples     *int     `json:"samples,omitempty"`
	GrowthSigma *float64 `json:"growth_sigma,omitempty"`
	MarginSigma *float64 `json:"margin_sigma,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

func (m *MonteCarloRequest) overlay(base scenario.MonteCarloConfig) scenario.MonteCarloConfig {
	if m.Samples != nil {
		base.Samples = *m.Samples
	}
	if m.GrowthSigma != nil {
		base.GrowthSigma = *m.GrowthSigma
	}
	if m.MarginSigma != nil {
		base.MarginSigma = *m.MarginSigma
	}
	if m.Seed != nil {
		base.Seed = *m.Seed
	}
	return base
}

// SensitivityRequest overrides the grid axes. Skip disables the grid.
type SensitivityRequest struct {
	Rates     []float64 `json:"rates,omitempty"`
	Multiples []float64 `json:"multiples,omitempty"`
	Skip      bool      `json:"skip,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string                 `json:"error"`
	Kind   string                 `json:"kind,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Handler holds dependencies for valuation endpoints
type Handler struct {
	Orchestrator *pipeline.Orchestrator
	Repo         store.RunRepository
	Metrics      *Metrics
	Logger       logging.Logger

	// Defaults applied when a request leaves them out.
	DefaultYears int
	Rates        scenario.Axis
	Multiples    scenario.Axis
	MonteCarlo   scenario.MonteCarloConfig
}

// NewHandler creates a new valuation handler
func NewHandler(orch *pipeline.Orchestrator, repo store.RunRepository, metrics *Metrics, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		Orchestrator: orch,
		Repo:         repo,
		Metrics:      metrics,
		Logger:       logger.Named("api"),
		DefaultYears: pipeline.DefaultYears,
		MonteCarlo:   scenario.DefaultMonteCarloConfig(),
	}
}

// Register mounts the valuation routes on r.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/valuation").Subrouter()
	api.Use(cors)
	api.HandleFunc("/run", h.HandleRun).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/runs", h.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", h.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/report", h.HandleReport).Methods(http.MethodGet)
}

// HandleRun runs a valuation from a JSON body and returns the run record.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	start := time.Now()

	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.Metrics.observe(OutcomeInvalid, time.Since(start).Seconds())
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: string(modelerr.KindMalformedInput)})
		return
	}

	hist, err := historical.FromRaw(req.Historical)
	if err != nil {
		h.fail(w, err, start)
		return
	}

	preq := pipeline.Request{
		Historical: hist,
		Overrides:  req.Overrides,
		Years:      req.Years,
		Scenarios:  req.Scenarios,
		Rates:      h.Rates,
		Multiples:  h.Multiples,
		Save:       req.Save == nil || *req.Save,
	}
	if preq.Years == 0 {
		preq.Years = h.DefaultYears
	}
	if req.MonteCarlo != nil {
		mc := req.MonteCarlo.overlay(h.MonteCarlo)
		preq.MonteCarlo = &mc
	}
	if err := checkBounds(&req, preq); err != nil {
		h.fail(w, err, start)
		return
	}
	if s := req.Sensitivity; s != nil {
		preq.SkipSensitivity = s.Skip
		if len(s.Rates) > 0 {
			preq.Rates = s.Rates
		}
		if len(s.Multiples) > 0 {
			preq.Multiples = s.Multiples
		}
	}
	if preq.Save && h.Repo == nil {
		preq.Save = false
	}

	rec, err := h.Orchestrator.Run(r.Context(), preq)
	if err != nil {
		h.fail(w, err, start)
		return
	}

	cells, samples := 0, 0
	if rec.Sensitivity != nil {
		cells = len(rec.Sensitivity.Cells)
	}
	if rec.MonteCarlo != nil {
		samples = rec.MonteCarlo.Samples
	}
	h.Metrics.work(cells, samples)
	h.Metrics.observe(OutcomeOK, time.Since(start).Seconds())

	h.Logger.Info("run served",
		logging.String("id", rec.ID),
		logging.Float64("enterprise_value", rec.EnterpriseValue()),
		logging.Duration("elapsed", time.Since(start)))
	writeJSON(w, http.StatusOK, rec)
}

// checkBounds rejects requests whose size alone would exhaust the server.
func checkBounds(req *RunRequest, preq pipeline.Request) error {
	if preq.Years > MaxYears {
		return modelerr.InvalidAssumptions("run", "years must be <= %d", MaxYears).With("years", preq.Years)
	}
	if len(req.Scenarios) > MaxScenarios {
		return modelerr.InvalidAssumptions("run", "at most %d scenarios", MaxScenarios).With("scenarios", len(req.Scenarios))
	}
	if s := req.Sensitivity; s != nil && (len(s.Rates) > MaxAxisLen || len(s.Multiples) > MaxAxisLen) {
		return modelerr.InvalidAssumptions("run", "sensitivity axes hold at most %d values", MaxAxisLen).
			With("rates", len(s.Rates)).With("multiples", len(s.Multiples))
	}
	if mc := preq.MonteCarlo; mc != nil && mc.Samples > MaxSamples {
		return modelerr.InvalidAssumptions("run", "monte carlo samples must be <= %d", MaxSamples).With("samples", mc.Samples)
	}
	return nil
}

// HandleList returns stored runs, newest first. ?limit=N bounds the list.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "run storage not configured"})
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid limit %q", s)})
			return
		}
		limit = n
	}
	runs, err := h.Repo.List(r.Context(), limit)
	if err != nil {
		h.Logger.Error("list runs failed", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleGet returns one stored run.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "run storage not configured"})
		return
	}
	rec, err := h.Repo.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.loadFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleReport renders a stored run. ?format= md (default), html or xlsx.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "run storage not configured"})
		return
	}
	rec, err := h.Repo.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.loadFailed(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(report.Markdown(rec)))
	case "html":
		page, err := report.HTML(rec)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "valuation-"+rec.ID+".xlsx"))
		if err := report.WriteWorkbook(w, rec); err != nil {
			h.Logger.Error("workbook export failed", logging.String("id", rec.ID), logging.Err(err))
		}
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unsupported format %q", format)})
	}
}

// fail maps engine errors to 400 and everything else to 500.
func (h *Handler) fail(w http.ResponseWriter, err error, start time.Time) {
	var merr *modelerr.Error
	if errors.As(err, &merr) {
		h.Metrics.observe(OutcomeInvalid, time.Since(start).Seconds())
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: string(merr.Kind), Params: merr.Params})
		return
	}
	h.Metrics.observe(OutcomeError, time.Since(start).Seconds())
	h.Logger.Error("run failed", logging.Err(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func (h *Handler) loadFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	h.Logger.Error("load run failed", logging.Err(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cors adds the headers the local dashboard needs.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}
