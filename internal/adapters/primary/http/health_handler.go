package http

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

const probeTimeout = 5 * time.Second

// HealthChecker is a dependency that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Ping calls f.
func (f HealthCheckFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler serves liveness, readiness and a detailed report.
type HealthHandler struct {
	names     []string
	checkers  map[string]HealthChecker
	startTime time.Time
	version   string
}

// NewHealthHandler always probes the database; WithCheck adds more.
func NewHealthHandler(db HealthChecker, version string) *HealthHandler {
	h := &HealthHandler{
		checkers:  make(map[string]HealthChecker),
		startTime: time.Now(),
		version:   version,
	}
	return h.WithCheck("database", db)
}

// WithCheck registers an additional dependency probe.
func (h *HealthHandler) WithCheck(name string, checker HealthChecker) *HealthHandler {
	h.names = append(h.names, name)
	h.checkers[name] = checker
	return h
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check is one dependency's probe result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// RuntimeStats is appended to the detailed report.
type RuntimeStats struct {
	AllocBytes uint64 `json:"alloc_bytes"`
	SysBytes   uint64 `json:"sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// RegisterRoutes mounts the probes at their conventional paths.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness reports that the process is serving; dependencies are not
// consulted.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness answers 503 while any dependency is down.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	report, healthy := h.report(r.Context())
	if !healthy {
		report.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, report)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// HandleHealth is the readiness report plus runtime statistics. A failing
// dependency marks the service degraded.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report, healthy := h.report(r.Context())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	body := struct {
		HealthResponse
		Runtime RuntimeStats `json:"runtime"`
	}{
		HealthResponse: report,
		Runtime: RuntimeStats{
			AllocBytes: mem.Alloc,
			SysBytes:   mem.Sys,
			NumGC:      mem.NumGC,
			Goroutines: runtime.NumGoroutine(),
		},
	}

	status := http.StatusOK
	if !healthy {
		body.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, body)
}

// report probes every dependency in parallel.
func (h *HealthHandler) report(ctx context.Context) (HealthResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]Check, len(h.names))
	)
	for _, name := range h.names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := probe(ctx, name, h.checkers[name])
			mu.Lock()
			checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	healthy := true
	for _, c := range checks {
		healthy = healthy && c.Status == "healthy"
	}
	return HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}, healthy
}

func probe(ctx context.Context, name string, checker HealthChecker) Check {
	if checker == nil {
		return Check{Status: "unhealthy", Message: name + " not configured"}
	}
	start := time.Now()
	if err := checker.Ping(ctx); err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: time.Since(start).String()}
	}
	return Check{Status: "healthy", Latency: time.Since(start).String()}
}
