// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tanhuynh200412/catalog-admin/internal/auth"
	"github.com/tanhuynh200412/catalog-admin/internal/config"
	"github.com/tanhuynh200412/catalog-admin/internal/handler"
	"github.com/tanhuynh200412/catalog-admin/internal/middleware"
)

// Server serves the admin API and, when a probe port is configured, a
// separate unauthenticated probe listener.
type Server struct {
	httpServer    *http.Server
	probeServer   *http.Server
	router        *mux.Router
	probeRouter   *mux.Router
	config        *config.Config
	logger        *zap.Logger
	authenticator auth.Authenticator
	wsHandler     *handler.WebSocketHandler
}

// New creates a new Server over catalog. A nil authenticator leaves the API
// open.
func New(cfg *config.Config, logger *zap.Logger, catalog handler.Catalog, authenticator auth.Authenticator) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		probeRouter:   mux.NewRouter(),
		config:        cfg,
		logger:        logger,
		authenticator: authenticator,
	}

	s.setupMiddleware()
	s.setupRoutes(catalog)
	s.setupProbeRoutes(catalog)
	s.setupHTTPServers()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	allowedOrigins := []string{"*"}
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		"Authorization",
		auth.APIKeyHeader,
		handler.ConfirmDeleteHeader,
		middleware.RequestIDHeader,
	}

	// First applied is outermost.
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS(allowedOrigins, allowedMethods, allowedHeaders)))

	if s.authenticator != nil {
		s.router.Use(mux.MiddlewareFunc(middleware.Auth(s.authenticator, s.logger)))
	}
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(catalog handler.Catalog) {
	restHandler := handler.NewRESTHandler(catalog, s.logger)
	restHandler.RegisterRoutes(s.router)

	s.wsHandler = handler.NewWebSocketHandler(catalog, s.logger)
	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupProbeRoutes configures health, readiness and metrics on the probe
// router. The router is built even without a probe port so it can be served
// in tests.
func (s *Server) setupProbeRoutes(catalog handler.Catalog) {
	probes := handler.NewRESTHandler(catalog, s.logger)

	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.probeRouter.HandleFunc("/health", probes.HealthCheck).Methods(http.MethodGet)
	s.probeRouter.HandleFunc("/ready", probes.ReadyCheck).Methods(http.MethodGet)

	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServers configures the API server and the optional probe server.
func (s *Server) setupHTTPServers() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	if s.config.ProbePort > 0 {
		s.probeServer = &http.Server{
			Addr:              s.config.ProbeAddress(),
			Handler:           s.probeRouter,
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}
	}
}

// Start serves until Shutdown is called or a listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Bool("auth_enabled", s.authenticator != nil),
	)

	var g errgroup.Group
	g.Go(func() error {
		return serve(s.httpServer, "server")
	})
	if s.probeServer != nil {
		s.logger.Info("starting probe server", zap.String("address", s.config.ProbeAddress()))
		g.Go(func() error {
			return serve(s.probeServer, "probe server")
		})
	}

	return g.Wait()
}

func serve(srv *http.Server, name string) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listen and serve: %w", name, err)
	}
	return nil
}

// Shutdown closes WebSocket clients, then drains both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the API router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ProbeRouter returns the probe router.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}
