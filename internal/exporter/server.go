// Package exporter serves fleet metrics to Prometheus. Every scrape
// resolves the fleet and collects from it afresh.
package exporter

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/logger"
)

// ShutdownTimeout bounds how long in-flight scrapes get to finish on stop.
const ShutdownTimeout = 10 * time.Second

// Collector runs one fan-out. *fleet.Coordinator satisfies it.
type Collector interface {
	Collect(ctx context.Context, targets []fleet.Target, maxConcurrency int) ([]fleet.Result, error)
}

// Options configures a Server.
type Options struct {
	Listen         string
	MetricsPath    string
	Directory      directory.Directory
	NameFilters    []string
	Collector      Collector
	MaxConcurrency int
	Version        string
	Logger         logger.Logger
}

// Server is the HTTP exporter.
type Server struct {
	opts   Options
	router *mux.Router
	log    logger.Logger

	// scrapeMu serializes scrapes so overlapping requests don't multiply
	// the load on the fleet.
	scrapeMu sync.Mutex

	stateMu sync.Mutex
	last    scrapeState
}

type scrapeState struct {
	At       time.Time `json:"at"`
	Targets  int       `json:"targets"`
	Failed   int       `json:"failed"`
	Duration float64   `json:"duration_seconds"`
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	if opts.Directory == nil || opts.Collector == nil {
		return nil, errors.New(errors.ErrConfig,
			"Exporter needs a target directory and a collector", "")
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = fleet.DefaultMaxConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	s := &Server{opts: opts, router: mux.NewRouter(), log: opts.Logger}
	s.router.HandleFunc(opts.MetricsPath, s.handleMetrics).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Use(s.loggingMiddleware)
	return s, nil
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on opts.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExport,
			"Can't listen on "+s.opts.Listen,
			"Pick a free address with exporter.listen or --listen")
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("serving metrics on http://%s%s", ln.Addr(), s.opts.MetricsPath)

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrExport, "Metrics server stopped", "")
	case <-ctx.Done():
	}

	s.log.Info("shutting down metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapWithCode(err, errors.ErrExport, "Metrics server didn't shut down cleanly", "")
	}
	return nil
}

// Scrape resolves the fleet, collects from it, and returns the results with
// the wall-clock time taken.
func (s *Server) Scrape(ctx context.Context) ([]fleet.Result, time.Duration, error) {
	s.scrapeMu.Lock()
	defer s.scrapeMu.Unlock()

	start := time.Now()
	targets := directory.Resolve(ctx, s.opts.Directory, s.opts.NameFilters, s.log)
	results, err := s.opts.Collector.Collect(ctx, targets, s.opts.MaxConcurrency)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}

	failed := 0
	for _, r := range results {
		if !r.Outcome.OK() {
			failed++
		}
	}
	s.stateMu.Lock()
	s.last = scrapeState{At: time.Now(), Targets: len(results), Failed: failed, Duration: elapsed.Seconds()}
	s.stateMu.Unlock()

	return results, elapsed, nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	results, elapsed, err := s.Scrape(r.Context())
	if err != nil {
		s.log.Error("scrape failed: %s", errors.Brief(err))
		http.Error(w, errors.Brief(err), http.StatusInternalServerError)
		return
	}

	reg := buildRegistry(results, elapsed)
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}).ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.stateMu.Lock()
	last := s.last
	s.stateMu.Unlock()

	health := map[string]interface{}{
		"status":  "healthy",
		"service": "fleetmon",
		"version": s.opts.Version,
	}
	if !last.At.IsZero() {
		health["last_scrape"] = last
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("[%s] %s %s - %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start).Round(time.Millisecond))
	})
}
