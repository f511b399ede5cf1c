// Package health serves readiness and metrics endpoints while the predictor
// runs in watch mode.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/metrics"
)

const checkTimeout = 3 * time.Second

// Check reports the health of one dependency of the watch loop, such as the
// scheduler or the feature store.
type Check func(ctx context.Context) error

// Report is the body of the readiness endpoint.
type Report struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
	Failing []string          `json:"failing,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Addr        string
	MetricsPath string
	Checks      map[string]Check
	Logger      *logrus.Logger
}

// Server exposes /ready and the Prometheus registry.
type Server struct {
	cfg   Config
	ready atomic.Bool
	srv   *http.Server
}

// NewServer creates a server that is not ready until SetReady(true).
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Server{cfg: cfg}
}

// SetReady flips the readiness flag reported as the "watch" check.
func (s *Server) SetReady(ready bool) { s.ready.Store(ready) }

// Handler returns the routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle(s.cfg.MetricsPath, metrics.Handler())
	return mux
}

// Start serves in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	log := s.cfg.Logger.WithField("addr", s.cfg.Addr)

	go func() {
		log.Info("Health server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Health server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Health server shutdown")
		}
	}()
	return nil
}

// Evaluate runs every check and the readiness flag.
func (s *Server) Evaluate(ctx context.Context) Report {
	report := Report{Status: "ok", Service: s.cfg.ServiceName, Checks: map[string]string{"watch": "ok"}}
	if !s.ready.Load() {
		report.Checks["watch"] = "not_ready"
		report.Failing = append(report.Failing, "watch")
	}
	for name, check := range s.cfg.Checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			report.Checks[name] = "error: " + err.Error()
			report.Failing = append(report.Failing, name)
			continue
		}
		report.Checks[name] = "ok"
	}
	if len(report.Failing) > 0 {
		sort.Strings(report.Failing)
		report.Status = "not_ready"
	}
	return report
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report := s.Evaluate(r.Context())
	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.cfg.Logger.WithError(err).Debug("Failed to write readiness report")
	}
}
