// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matthewbaird/ksqlplan/internal/event"
	"github.com/matthewbaird/ksqlplan/internal/eventbus"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/repl"
	"github.com/matthewbaird/ksqlplan/internal/repl/session"
)

// Config holds server configuration.
type Config struct {
	Port int

	// Catalog is the stream registry statements are planned against.
	Catalog *metastore.MetaStore
	// Store persists catalog changes made through the API. Optional.
	Store *metastore.SQLiteStore

	SessionIdle   time.Duration
	SessionMaxAge time.Duration

	Logger   log.Logger
	Registry *prometheus.Registry
}

// Server serves the planner API, the REPL and metrics.
type Server struct {
	cfg      Config
	logger   log.Logger
	bus      *eventbus.Bus
	recorder *event.Recorder
	sessions *session.Manager
	router   chi.Router
}

// New wires the event bus, consumers and routes. Call Run to serve.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = metastore.New()
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = 30 * time.Minute
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 24 * time.Hour
	}

	s := &Server{
		cfg:      cfg,
		logger:   log.With(cfg.Logger, "component", "server"),
		bus:      eventbus.New(256, cfg.Logger),
		sessions: session.NewManager(cfg.SessionMaxAge, cfg.SessionIdle),
	}
	s.bus.Subscribe("log", eventbus.NewLogConsumer(log.With(cfg.Logger, "component", "events")))
	s.bus.Subscribe("metrics", eventbus.NewMetricsConsumer(cfg.Registry))
	s.recorder = event.NewRecorder(s.bus)

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "streams": s.cfg.Catalog.Len()})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/explain", s.explain)
		r.Get("/streams", s.listStreams)
		r.Get("/streams/{name}", s.getStream)
		r.Put("/streams/{name}", s.putStream)
		r.Delete("/streams/{name}", s.deleteStream)
	})

	repl.RegisterRoutes(r, s.cfg.Catalog, s.sessions, s.recorder, s.cfg.Logger)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins event dispatch and session cleanup. Run calls it; tests
// serving Handler directly call it themselves.
func (s *Server) Start(ctx context.Context) {
	s.bus.Start(ctx)
	go s.sessions.Run(ctx, time.Minute)
}

// Run serves until ctx is cancelled, then shuts down gracefully. The event
// bus is stopped once in-flight requests have finished.
func (s *Server) Run(ctx context.Context) error {
	s.Start(ctx)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			level.Warn(s.logger).Log("msg", "shutdown", "err", err)
		}
	}()

	level.Info(s.logger).Log("msg", "starting server", "addr", addr, "streams", s.cfg.Catalog.Len())
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.bus.Stop()
		return err
	}
	<-shutdown
	s.bus.Stop()
	return nil
}

// RegisterRuntimeMetrics adds Go runtime and process collectors to reg.
func RegisterRuntimeMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
