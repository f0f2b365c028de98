// Package server exposes the feed over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/skate-feed/internal/cache"
	"github.com/pfrederiksen/skate-feed/internal/clock"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/telemetry"
)

// Feed is the cached feed the server publishes.
type Feed interface {
	Get(ctx context.Context) ([]event.Event, error)
	Invalidate(ctx context.Context) error
	Info(ctx context.Context) cache.Info
}

// Config holds HTTP server settings.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server serves the feed endpoints.
type Server struct {
	cfg      Config
	feed     Feed
	location *time.Location
	clock    clock.Clock
	sources  []string
	log      *logger.Logger
	metrics  *logger.Metrics
}

// Options are the collaborators of a Server. Location is the feed time zone
// used to render timestamps; Sources lists adapter names for /health.
type Options struct {
	Feed     Feed
	Location *time.Location
	Clock    clock.Clock
	Sources  []string
	Logger   *logger.Logger
	Metrics  *logger.Metrics
}

// New creates a Server.
func New(cfg Config, opts Options) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem(opts.Location)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = logger.DefaultMetrics()
	}

	return &Server{
		cfg:      cfg,
		feed:     opts.Feed,
		location: opts.Location,
		clock:    opts.Clock,
		sources:  opts.Sources,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(CORS())
	r.Use(telemetry.TracingMiddleware())
	r.Use(RequestLogger(s.log))

	r.GET("/events", s.handleEvents)
	r.GET("/events.ics", s.handleCalendar)
	r.GET("/clear_cache", s.handleClearCache)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)

	api := r.Group("/api")
	{
		api.GET("/public_skate_events", s.handleEvents)
		api.GET("/clear_cache", s.handleClearCache)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", RequestID: GetRequestID(c)})
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Router(),
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.log.Info("Server exited gracefully", nil)
	return nil
}
