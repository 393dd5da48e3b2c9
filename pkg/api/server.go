package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/pwauto/pkg/automation"
	"github.com/entrhq/pwauto/pkg/logging"
)

// DefaultCleanLength caps the text kept by clean=true responses.
const DefaultCleanLength = 50000

// Options configures the HTTP server.
type Options struct {
	Address string

	// AllowedHosts are glob patterns for hosts the API may open.
	AllowedHosts []string

	Logger *logging.Logger

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	// CleanLength caps clean=true output (default DefaultCleanLength).
	CleanLength int
}

// Server exposes an automation.Service over HTTP.
type Server struct {
	svc         automation.Service
	hosts       *HostMatcher
	logger      *logging.Logger
	gatherer    prometheus.Gatherer
	cleanLength int
	httpServer  *http.Server
}

// New creates a server for svc.
func New(svc automation.Service, opts Options) (*Server, error) {
	hosts, err := NewHostMatcher(opts.AllowedHosts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:         svc,
		hosts:       hosts,
		logger:      opts.Logger,
		gatherer:    opts.Gatherer,
		cleanLength: opts.CleanLength,
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.cleanLength <= 0 {
		s.cleanLength = DefaultCleanLength
	}

	s.httpServer = &http.Server{
		Addr:              opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/Playwright", func(r chi.Router) {
		r.Get("/GetElement", s.handleGetElement)
		r.Get("/GetElementList", s.handleGetElementList)
		r.Get("/Screenshot", s.handleScreenshot)
	})

	return r
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Infof("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
	})
}
