package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/yourusername/deepmoo/pkg/engine"
	"github.com/yourusername/deepmoo/pkg/gamefile"
)

// Request limits.
const (
	maxTrials  = 1000000
	maxSamples = 1000000
	maxWorkers = 256
)

// Handlers holds the HTTP handlers and engine reference.
type Handlers struct {
	engine   *engine.Engine
	version  string
	pool     *WorkerPool
	defaults engine.AdviseOptions
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(e *engine.Engine, version string) *Handlers {
	return &Handlers{
		engine:  e,
		version: version,
	}
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(e *engine.Engine, version string, pool *WorkerPool) *Handlers {
	return &Handlers{
		engine:  e,
		version: version,
		pool:    pool,
	}
}

// WithDefaults sets the options used for fields a request leaves zero.
func (h *Handlers) WithDefaults(opts engine.AdviseOptions) *Handlers {
	opts.Progress = nil
	h.defaults = opts
	return h
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// writeEngineError maps an engine error to a status code.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error, code string) {
	var perr *gamefile.ParseError
	switch {
	case errors.As(err, &perr):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_GAME_FILE")
	case errors.Is(err, engine.ErrInvalidState), errors.Is(err, engine.ErrInvalidRules):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_GAME")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled", "CANCELLED")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(code)
		writeError(w, http.StatusInternalServerError, err.Error(), code)
	}
}

// options merges request fields over the handler defaults.
func (h *Handlers) options(req *AdviseRequest) (engine.AdviseOptions, error) {
	opts := h.defaults
	if req.Trials > 0 {
		opts.Trials = req.Trials
	}
	if req.Samples > 0 {
		opts.Samples = req.Samples
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	if opts.Trials > maxTrials || opts.Samples > maxSamples || opts.Workers > maxWorkers {
		return opts, errors.New("trials, samples or workers over the limit")
	}
	return opts, nil
}

// decodeGame reads the game of a request into a validated state.
func (h *Handlers) decodeGame(w http.ResponseWriter, r *http.Request, game *GameInput) (*engine.GameState, bool) {
	rules := h.engine.Rules()
	state, _, err := game.State(&rules)
	if err == nil {
		err = state.Validate(&rules)
	}
	if err != nil {
		writeEngineError(w, r, err, "INVALID_GAME")
		return nil, false
	}
	return state, true
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   h.engine != nil,
	}
	if h.engine != nil {
		resp.Rules = h.engine.Rules()
		if c := h.engine.Cache(); c != nil {
			stats := c.Stats()
			resp.Cache = &stats
		}
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// Estimate handles POST /api/estimate.
func (h *Handlers) Estimate(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	trials := req.Trials
	if trials <= 0 {
		trials = h.defaults.Trials
	}
	if trials > maxTrials {
		writeError(w, http.StatusBadRequest, "trials over the limit", "INVALID_OPTIONS")
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = h.defaults.Seed
	}

	state, ok := h.decodeGame(w, r, &req.Game)
	if !ok {
		return
	}

	d, err := h.engine.Estimate(r.Context(), state, engine.EstimateOptions{Trials: trials}, seed)
	if err != nil {
		writeEngineError(w, r, err, "ESTIMATE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, DistribToResponse(d))
}

// Advise handles POST /api/advise.
func (h *Handlers) Advise(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	var req AdviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	opts, err := h.options(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_OPTIONS")
		return
	}
	state, ok := h.decodeGame(w, r, &req.Game)
	if !ok {
		return
	}

	advice, err := h.engine.Advise(r.Context(), state, opts)
	if err != nil {
		writeEngineError(w, r, err, "ADVISE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, AdviceToResponse(advice))
}

// Review handles POST /api/review.
func (h *Handlers) Review(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	var req AdviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	opts, err := h.options(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_OPTIONS")
		return
	}
	state, ok := h.decodeGame(w, r, &req.Game)
	if !ok {
		return
	}

	review, err := h.engine.Review(r.Context(), state, opts)
	if err != nil {
		writeEngineError(w, r, err, "REVIEW_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, ReviewToResponse(review))
}
