package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/docforge/internal/convert"
	"github.com/seantiz/docforge/internal/store"
)

const (
	readHeaderTimeout = 10 * time.Second
	// Allowance on top of the conversion deadline for streaming the
	// finished PDF to the client.
	streamGrace = 60 * time.Second
	// Fallback when Options leaves the conversion deadline unset.
	defaultConvertTimeout = 120 * time.Second
)

// drainBudget is the longest a request may legitimately take end to end:
// the conversion deadline plus the streaming allowance. It sizes both the
// connection write timeout and the shutdown drain, so neither can cut off a
// conversion the deadline still permits.
func drainBudget(convertTimeout time.Duration) time.Duration {
	return convertTimeout + streamGrace
}

// Server wraps the chi router and application dependencies.
type Server struct {
	router         *chi.Mux
	coordinator    *convert.Coordinator
	store          store.Store
	logger         *slog.Logger
	addr           string
	apiKey         string
	maxUpload      int64
	convertTimeout time.Duration
}

// Options holds the server's request-handling knobs.
type Options struct {
	Addr        string
	APIKey      string
	MaxUploadMB int
	// ConvertTimeout mirrors the coordinator's per-job deadline so the
	// server can size its write timeout and shutdown drain around it.
	ConvertTimeout time.Duration
}

// NewServer creates and configures a new HTTP server.
func NewServer(opts Options, coord *convert.Coordinator, st store.Store, logger *slog.Logger) *Server {
	if opts.ConvertTimeout <= 0 {
		opts.ConvertTimeout = defaultConvertTimeout
	}
	srv := &Server{
		router:         chi.NewRouter(),
		coordinator:    coord,
		store:          st,
		logger:         logger,
		addr:           opts.Addr,
		apiKey:         opts.APIKey,
		maxUpload:      int64(opts.MaxUploadMB) << 20,
		convertTimeout: opts.ConvertTimeout,
	}

	if srv.apiKey == "" {
		logger.Warn("no API key configured, convert endpoint is open")
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/convert", s.handleConvert)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/stats", s.handleGetStats)
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      drainBudget(s.convertTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Draining must outlast the conversion deadline: an in-flight engine
	// process abandoned here would leak its workspace across restarts.
	ctx, cancel := context.WithTimeout(context.Background(), drainBudget(s.convertTimeout))
	defer cancel()

	shutdownErr := httpServer.Shutdown(ctx)
	if err := s.coordinator.Wait(ctx); err != nil {
		s.logger.Error("shutdown drain incomplete", "error", err)
	}
	if shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a classified JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{"code": code, "error": message})
}
