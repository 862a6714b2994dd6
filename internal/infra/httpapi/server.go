package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"alexa-climate-bridge/internal/alexa"
)

const maxDirectiveBytes = 64 * 1024

// Dispatcher turns a raw directive into a response envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw []byte) *alexa.Response
}

// HealthCheck reports whether an optional dependency is usable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	addr        string
	server      *http.Server
	router      chi.Router
	dispatcher  Dispatcher
	logger      *slog.Logger
	rateLimiter *RateLimiter

	mu      sync.Mutex
	running bool
	checks  map[string]HealthCheck
}

func NewServer(addr string, dispatcher Dispatcher, rateLimiter *RateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		dispatcher:  dispatcher,
		logger:      logger,
		rateLimiter: rateLimiter,
		checks:      make(map[string]HealthCheck),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		if rateLimiter != nil {
			r.Use(rateLimiter.Middleware)
		}
		r.Post("/alexa", s.handleDirective)
	})

	s.router = r
	return s
}

// AddHealthCheck registers a dependency reported by GET /health.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	if s.rateLimiter != nil {
		go s.pruneLoop(ctx)
	}

	s.running = true
	return nil
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Prune()
		}
	}
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

// handleDirective always answers 200 with an envelope, except for discovery
// directives that get no answer at all.
func (s *Server) handleDirective(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxDirectiveBytes))
	if err != nil {
		s.logger.Error("reading directive body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), data)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("writing response", "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	checks := make(map[string]HealthCheck, len(s.checks))
	for name, c := range s.checks {
		checks[name] = c
	}
	s.mu.Unlock()

	body := healthResponse{Status: "ok"}
	statusCode := http.StatusOK

	if len(checks) > 0 {
		body.Checks = make(map[string]string, len(checks))
	}
	for name, check := range checks {
		if err := check(r.Context()); err != nil {
			body.Checks[name] = err.Error()
			body.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		body.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
