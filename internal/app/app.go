// Package app wires configuration, logging, metrics, the upstream provider
// and the HTTP transport into a runnable server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ligaproxy/internal/config"
	apierrors "ligaproxy/internal/errors"
	"ligaproxy/internal/infrastructure"
	customMiddleware "ligaproxy/internal/middleware"
	"ligaproxy/internal/operations"
	"ligaproxy/internal/provider"
	handlers "ligaproxy/internal/transport/http"
	"ligaproxy/pkg/contracts"
)

const serviceName = "ligaproxy"

// Application is the dependency container for the proxy server.
type Application struct {
	Config     *config.Config
	Logger     *slog.Logger
	Router     *chi.Mux
	Server     *http.Server
	Metrics    *infrastructure.Metrics
	Registry   *prometheus.Registry
	Provider   provider.SportsProvider
	Dispatcher *operations.Dispatcher

	shutdownTracing func(context.Context) error
}

// NewApplication builds the application from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", serviceName),
		slog.String("version", contracts.Version),
		slog.String("provider", cfg.Provider.Name),
		slog.String("addr", cfg.Addr()))

	shutdownTracing, err := infrastructure.InitTracing(cfg.Tracing, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := infrastructure.NewMetrics(registry)

	sportsProvider, err := provider.New(cfg.Provider, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}

	dispatcher, err := operations.NewDispatcher(sportsProvider, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	app := &Application{
		Config:          cfg,
		Logger:          logger,
		Metrics:         metrics,
		Registry:        registry,
		Provider:        sportsProvider,
		Dispatcher:      dispatcher,
		shutdownTracing: shutdownTracing,
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// setupRouter configures the HTTP router and middleware chain.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.Use(render.SetContentType(render.ContentTypeJSON))

	proxyHandler := handlers.NewProxyHandler(a.Dispatcher, a.Logger)
	operationsHandler := handlers.NewOperationsHandler(a.Dispatcher, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.Config.Provider.Name)

	r.Post("/proxy/execute", proxyHandler.Execute)
	r.Get("/operations", operationsHandler.List)
	r.Get("/health", healthHandler.Check)

	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, apierrors.New(apierrors.CodeNotFound, "Resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, apierrors.New(apierrors.CodeMethodNotAllowed, "Method not allowed"))
	})

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the server and blocks until the process is interrupted or the
// server fails, then shuts everything down gracefully.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server listening",
			slog.String("addr", a.Server.Addr),
			slog.Int("operations", len(a.Dispatcher.Names())))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown drains in-flight requests and releases resources.
func (a *Application) shutdown() error {
	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(shutdownCtx); err != nil {
			a.Logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}

	a.Logger.Info("shutdown complete")
	return nil
}
