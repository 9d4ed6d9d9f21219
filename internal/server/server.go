package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/Nzyazin/fxwidget/internal/core/handler"
	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/metrics"
	middlWre "github.com/Nzyazin/fxwidget/internal/core/middleware"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
	"github.com/Nzyazin/fxwidget/internal/core/repository"
	"github.com/Nzyazin/fxwidget/internal/core/repository/postgres"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/Nzyazin/fxwidget/internal/core/view"
	"github.com/Nzyazin/fxwidget/pkg/config"
	"github.com/Nzyazin/fxwidget/pkg/postgresdb"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

type Server struct {
	router     *mux.Router
	log        logger.Logger
	httpServer *http.Server
	registry   *prometheus.Registry

	catalog  *usecase.Catalog
	sessions *usecase.SessionStore
	db       *postgresdb.Database
	stop     context.CancelFunc

	widgetHandler   *handler.WidgetHandler
	streamHandler   *handler.StreamHandler
	currencyHandler *handler.CurrencyHandler
	historyHandler  *handler.HistoryHandler
}

func NewServer(cfg *config.AppConfig, log logger.Logger) (*Server, error) {
	visibility, err := view.ParseErrorVisibility(cfg.ErrorVisibility)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	client := oracle.NewClient(cfg.OracleBaseURL, cfg.OracleTimeout, log, m)

	// a failed catalog load leaves the service up in degraded mode
	catalog := usecase.NewCatalog(client, log)
	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.OracleTimeout)
	if err := catalog.Load(loadCtx); err != nil {
		log.Warn("Starting without currency catalog", logger.ErrorField("error", err))
	}
	cancel()
	warnUnlistedDefaults(catalog, cfg, log)

	var (
		db      *postgresdb.Database
		history repository.HistoryRepository
	)
	if cfg.HistoryEnabled {
		db, err = postgresdb.NewPostgresDB(context.Background(), cfg.DB, log)
		if err != nil {
			return nil, err
		}
		schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = postgres.EnsureSchema(schemaCtx, db.DB)
		cancel()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure history schema: %w", err)
		}
		history = postgres.NewPostgresHistoryRepo(db.DB, log)
	}

	sessions := usecase.NewSessionStore(usecase.WidgetOptions{
		Oracle:             client,
		Catalog:            catalog,
		History:            history,
		Log:                log,
		Metrics:            m,
		Sched:              usecase.WallClock,
		Debounce:           cfg.ConversionDebounce,
		SuppressChartStale: cfg.ChartSuppressStale,
		DefaultFrom:        cfg.DefaultFrom,
		DefaultTo:          cfg.DefaultTo,
	}, cfg.SessionIdleTTL)

	runCtx, stop := context.WithCancel(context.Background())
	go sessions.Run(runCtx)

	renderer := view.NewRenderer(cfg.DisplayLocale, visibility)

	server := &Server{
		log:             log,
		router:          mux.NewRouter(),
		registry:        registry,
		catalog:         catalog,
		sessions:        sessions,
		db:              db,
		stop:            stop,
		widgetHandler:   handler.NewWidgetHandler(sessions, renderer, log),
		streamHandler:   handler.NewStreamHandler(sessions, renderer, log),
		currencyHandler: handler.NewCurrencyHandler(catalog, log),
		historyHandler:  handler.NewHistoryHandler(history, log),
	}

	server.router.Use(
		middlWre.Logging(server.log),
		middlWre.Recovery(server.log),
	)

	server.RegisterRoutes()

	return server, nil
}

// RegisterRoutes mounts the websocket stream and the operational endpoints
// on the root router, and the JSON API on a subrouter wrapped with HTTP
// metrics and the error handler. Both of those wrap the response writer,
// which the websocket upgrade cannot go through.
func (s *Server) RegisterRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/healthz", handler.Health(s.catalog, s.sessions)).Methods("GET")
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	s.streamHandler.RegisterRoutes(s.router)

	mw := middleware.New(middleware.Config{
		Recorder: metricsprom.NewRecorder(metricsprom.Config{Registry: s.registry}),
	})

	api := s.router.NewRoute().Subrouter()
	api.Use(
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				std.Handler(routeTemplate(r), mw, next).ServeHTTP(w, r)
			})
		},
		middlWre.WithErrorHandler(s.log),
	)
	s.widgetHandler.RegisterRoutes(api)
	s.currencyHandler.RegisterRoutes(api)
	s.historyHandler.RegisterRoutes(api)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs HTTPS when both certFile and keyFile are set, plain HTTP
// otherwise.
func (s *Server) Serve(addr, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return s.RunTLS(addr, certFile, keyFile)
	}
	return s.Run(addr)
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      12 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	s.httpServer = srv

	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	var shutdownErr error

	go func() {
		if s.httpServer != nil {
			err := s.httpServer.Shutdown(ctx)
			if err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
		}

		s.stop()
		s.sessions.Close()

		if s.db != nil {
			err := s.db.Close()
			if err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("database shutdown error: %w", err)
			}
		}

		close(done)
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (s *Server) RunTLS(addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      9 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	s.httpServer = srv
	return srv.ListenAndServeTLS(certFile, keyFile)
}

// routeTemplate keeps widget IDs out of the HTTP metric labels.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func warnUnlistedDefaults(catalog *usecase.Catalog, cfg *config.AppConfig, log logger.Logger) {
	if catalog.Len() == 0 {
		return
	}
	for _, code := range []string{cfg.DefaultFrom, cfg.DefaultTo} {
		if _, err := catalog.Option(code); err != nil {
			log.Warn("Default currency is not in the catalog", logger.StringField("currency", code))
		}
	}
}
