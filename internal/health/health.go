// Package health serves the liveness and readiness probes.
//
//   - /healthz answers 200 whenever the process can serve HTTP.
//   - /readyz answers 200 only while every registered dependency check
//     passes, 503 otherwise, with a per-check breakdown in the body.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check probes one dependency. It must return promptly when ctx is done.
type Check func(ctx context.Context) error

// Handler evaluates named checks on each readiness request. The check set is
// fixed at construction, so the Handler is safe for concurrent use.
type Handler struct {
	version string
	timeout time.Duration
	names   []string
	checks  map[string]Check
}

// New builds a Handler. version is echoed in every response so probes double
// as a cheap deployment check.
func New(version string) *Handler {
	return &Handler{
		version: version,
		timeout: 5 * time.Second,
		checks:  make(map[string]Check),
	}
}

// Add registers a named readiness check. Not safe to call once the handler
// is serving.
func (h *Handler) Add(name string, check Check) *Handler {
	if _, dup := h.checks[name]; !dup {
		h.names = append(h.names, name)
	}
	h.checks[name] = check
	return h
}

type checkResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

type response struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]checkResult `json:"checks,omitempty"`
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, response{Status: "ok", Version: h.version})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]checkResult, len(h.names))
	ready := true

	for _, name := range h.names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		start := time.Now()
		err := h.checks[name](ctx)
		cancel()

		cr := checkResult{Status: "ok", Latency: time.Since(start).Round(time.Microsecond).String()}
		if err != nil {
			cr.Status = "fail"
			cr.Error = err.Error()
			ready = false
		}
		results[name] = cr
	}

	resp := response{Status: "ok", Version: h.version, Checks: results}
	status := http.StatusOK
	if !ready {
		resp.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	h.write(w, status, resp)
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
