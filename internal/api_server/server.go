package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kirillslovesnov/tender-sync/internal/config"
	"github.com/kirillslovesnov/tender-sync/internal/handlers"
	"github.com/kirillslovesnov/tender-sync/internal/store"
	"github.com/kirillslovesnov/tender-sync/pkg/metrics"
	"github.com/kirillslovesnov/tender-sync/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	fetcher  handlers.Fetcher
	trigger  handlers.Trigger
	listener net.Listener
}

// New returns a new instance of the tender-sync API server.
func New(
	cfg *config.Config,
	store store.Store,
	fetcher handlers.Fetcher,
	trigger handlers.Trigger,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		trigger:  trigger,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	tenderHandler := handlers.NewTenderHandler(s.fetcher)
	syncHandler := handlers.NewSyncHandler(s.trigger, s.store.SyncRun())

	router.Post("/api/v1/tenders/fetch", tenderHandler.Fetch)
	router.Post("/api/v1/sync", syncHandler.Trigger)
	router.Get("/api/v1/runs", syncHandler.Runs)
	router.Get("/health", handlers.Health)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
