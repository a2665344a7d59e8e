package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// gracefulShutdownTimeout bounds Close waiting for in-flight scrapes.
	gracefulShutdownTimeout = 5 * time.Second

	// checkTimeout bounds each dependency check in /healthz.
	checkTimeout = 2 * time.Second

	readHeaderTimeout = 5 * time.Second

	// readyPhase is the lifecycle phase reported as healthy.
	readyPhase = "ready"
)

// Logger is the logging interface used by the server.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// HealthChecker is a dependency reported by /healthz, such as the MQTT
// client or the database.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the metrics server.
type Deps struct {
	// Addr is the listen address, e.g. "127.0.0.1:9191". Port 0 picks a free port.
	Addr string

	// Gatherer supplies /metrics. Required.
	Gatherer prometheus.Gatherer

	// Phase reports the controller lifecycle phase. Required.
	Phase func() string

	// NodeCount reports the registry size. Optional.
	NodeCount func() int

	// Checks are named dependency checks. Optional.
	Checks map[string]HealthChecker

	Logger  Logger
	Version string
}

// Server serves /metrics and /healthz.
type Server struct {
	deps     Deps
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Phase     string            `json:"phase"`
	Version   string            `json:"version,omitempty"`
	Nodes     int               `json:"nodes"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewServer validates deps. The server does not listen until Start.
func NewServer(deps Deps) (*Server, error) {
	if deps.Gatherer == nil {
		return nil, errors.New("metrics: gatherer is required")
	}
	if deps.Phase == nil {
		return nil, errors.New("metrics: phase func is required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Server{deps: deps}, nil
}

// Start binds the listen address and serves in the background.
// A bind failure (port in use) is returned here rather than logged later.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("metrics: server already started")
	}

	ln, err := net.Listen("tcp", s.deps.Addr)
	if err != nil {
		return fmt.Errorf("metrics: listening on %s: %w", s.deps.Addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.deps.Logger.Error("metrics server error", "error", err)
		}
	}()

	s.deps.Logger.Info("metrics server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}
	return nil
}

// buildRouter creates the router with middleware and both endpoints.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Phase:     s.deps.Phase(),
		Version:   s.deps.Version,
		Timestamp: time.Now().UTC(),
	}
	if s.deps.NodeCount != nil {
		resp.Nodes = s.deps.NodeCount()
	}

	healthy := resp.Phase == readyPhase

	if len(s.deps.Checks) > 0 {
		resp.Checks = make(map[string]string, len(s.deps.Checks))
		names := make([]string, 0, len(s.deps.Checks))
		for name := range s.deps.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := s.deps.Checks[name].HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				healthy = false
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// requestIDMiddleware echoes X-Request-ID, generating one when absent.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns a handler panic into a 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.deps.Logger.Error("panic recovered in HTTP handler",
					"error", err,
					"path", r.URL.Path,
				)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "internal_error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	json.NewEncoder(w).Encode(v)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
