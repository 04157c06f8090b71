package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	kstat "github.com/illumos/go-kstat"
	"github.com/illumos/go-kstat/internal/config"
)

// Opener creates a Reader for f. The server uses one for every name of
// an mget request and closes it afterwards.
type Opener func(f kstat.Filter) (*kstat.Reader, error)

// Server is the kstat HTTP API.
type Server struct {
	config      config.ServerConfig
	reader      *kstat.Reader
	open        Opener
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	registry    *prometheus.Registry
	metrics     *httpMetrics
	log         *slog.Logger

	mu    sync.RWMutex
	ready bool
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the listen address, rate limits and timeouts. The
// default is config.Default().Server.
func WithConfig(cfg config.ServerConfig) Option {
	return func(s *Server) { s.config = cfg }
}

// WithOpener sets how mget creates its Readers. The default opens the
// system's kstats.
func WithOpener(o Opener) Option {
	return func(s *Server) { s.open = o }
}

// WithRegistry registers the server's metrics with reg and serves
// everything in reg on /metrics. The default is a new registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Server answering get, list, read, chainupdate and
// getkcid from r. The Server does not close r.
func New(r *kstat.Reader, opts ...Option) *Server {
	s := &Server{
		config: config.Default().Server,
		reader: r,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.open == nil {
		s.open = func(f kstat.Filter) (*kstat.Reader, error) {
			return kstat.NewReader(f, kstat.WithLogger(s.log))
		}
	}
	s.metrics = newHTTPMetrics(s.registry)
	s.rateLimiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), s.config.RateLimitBurst)

	s.httpServer = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// System endpoints (no rate limiting)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /kstat/get/{module}/{instance}/{name}", s.withMiddleware(s.handleGet))
	mux.HandleFunc("GET /kstat/mget/{module}/{instance}/{names}", s.withMiddleware(s.handleMultiGet))
	mux.HandleFunc("GET /kstat/list", s.withMiddleware(s.handleList))
	mux.HandleFunc("GET /kstat/read", s.withMiddleware(s.handleRead))
	mux.HandleFunc("GET /kstat/chainupdate", s.withMiddleware(s.handleChainUpdate))
	mux.HandleFunc("GET /kstat/getkcid", s.withMiddleware(s.handleChainID))

	return mux
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// SetReady sets what /ready reports.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.SetReady(true)
	s.log.Info("starting kstat server", slog.String("address", s.httpServer.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.SetReady(false)
		return err
	}
}

// Shutdown stops the server, waiting up to the configured shutdown
// timeout for requests in progress.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("shutting down kstat server")
	return s.httpServer.Shutdown(shutdownCtx)
}

// Run serves until ctx is done or the process gets SIGINT or SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("server config",
		slog.String("address", s.config.Address),
		slog.Float64("rateLimit", s.config.RateLimit),
		slog.Int("rateLimitBurst", s.config.RateLimitBurst),
		slog.Duration("readTimeout", s.config.ReadTimeout),
		slog.Duration("writeTimeout", s.config.WriteTimeout),
		slog.Duration("idleTimeout", s.config.IdleTimeout),
		slog.Duration("shutdownTimeout", s.config.ShutdownTimeout),
		slog.String("filter", s.reader.Filter().String()),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	s.log.Info("server stopped gracefully")
	return nil
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now(),
			Reason:    "server is not serving",
		})
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
	})
}
