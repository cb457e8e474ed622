package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yourusername/deepmoo/pkg/engine"
)

// AdviseSSE streams advice progress as Server-Sent Events.
// GET /api/advise/stream?text=...&trials=...&samples=...&workers=...&seed=...
// The text parameter holds a game file.
func (h *Handlers) AdviseSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	query := r.URL.Query()
	game := GameInput{Text: query.Get("text")}
	if game.Text == "" {
		writeSSEError(w, "text is required")
		return
	}
	req := AdviseRequest{
		Game:    game,
		Trials:  parseIntParam(query.Get("trials"), 0),
		Samples: parseIntParam(query.Get("samples"), 0),
		Workers: parseIntParam(query.Get("workers"), 0),
		Seed:    parseUintParam(query.Get("seed"), 0),
	}
	opts, err := h.options(&req)
	if err != nil {
		writeSSEError(w, err.Error())
		return
	}

	rules := h.engine.Rules()
	state, _, err := req.Game.State(&rules)
	if err != nil {
		writeSSEError(w, "invalid game: "+err.Error())
		return
	}

	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeSSEError(w, "server busy")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	// Progress events are written from the engine's workers one at a time.
	opts.Progress = func(p engine.AdviseProgress) {
		writeSSEEvent(w, "progress", p)
		flusher.Flush()
	}

	advice, err := h.engine.Advise(r.Context(), state, opts)
	if err != nil {
		writeSSEError(w, "advise failed: "+err.Error())
		return
	}

	writeSSEEvent(w, "result", AdviceToResponse(advice))
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data any) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}

func parseUintParam(s string, defaultVal uint64) uint64 {
	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}
