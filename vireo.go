// Package vireo is an HTTP framework built around three ideas: routes
// resolved by a segment tree, middleware organized into named reusable
// pipelines, and a per-request type-indexed state container that middleware
// and handlers use to exchange strongly-typed values.
//
// Requests are served on the runtime's scheduler: each connection gets a
// goroutine, and a request is never pinned to an OS thread across blocking
// points. Within one request, middleware run strictly in order; across
// requests there is no ordering at all. The router and pipeline set are
// immutable once Run or Handler is called and are shared by every in-flight
// request without locking.
package vireo

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vireo-web/vireo/config"
	"github.com/vireo-web/vireo/dispatch"
	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/router"
)

// ShutdownHook runs during graceful shutdown. Hooks run in reverse
// registration order, mirroring the LIFO cleanup semantics used per request.
type ShutdownHook func(ctx context.Context) error

// App wires configuration, logging, pipelines, routing and dispatch into a
// runnable server.
type App struct {
	config          *config.Config
	logger          *zap.Logger
	set             *pipeline.Set
	builder         *router.Builder
	shutdownHooks   []ShutdownHook
	shutdownTimeout time.Duration
	timeoutSet      bool
	mounts          map[string]http.Handler

	buildOnce sync.Once
	buildErr  error
	handler   http.Handler

	mu     sync.Mutex
	server *http.Server
}

// Option configures an App.
type Option func(*App) error

// New creates an application instance.
func New(opts ...Option) (*App, error) {
	app := &App{
		config:          config.DefaultConfig(),
		logger:          zap.NewNop(),
		shutdownTimeout: 30 * time.Second,
	}
	app.set = pipeline.NewSet()
	app.builder = router.NewBuilder(app.set)

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if !app.timeoutSet {
		app.shutdownTimeout = app.config.Server.ShutdownTimeout
	}
	return app, nil
}

// WithConfig sets the application configuration.
func WithConfig(cfg *config.Config) Option {
	return func(app *App) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		app.config = cfg
		return nil
	}
}

// WithLogger sets the application logger.
func WithLogger(logger *zap.Logger) Option {
	return func(app *App) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

// WithShutdownTimeout sets how long graceful shutdown may take.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(app *App) error {
		if timeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive")
		}
		app.shutdownTimeout = timeout
		app.timeoutSet = true
		return nil
	}
}

// Logger returns the application logger.
func (app *App) Logger() *zap.Logger { return app.logger }

// Config returns the application configuration.
func (app *App) Config() *config.Config { return app.config }

// Pipelines returns the pipeline set for the declaration phase.
func (app *App) Pipelines() *pipeline.Set { return app.set }

// Routes returns the route declaration surface. Declare all routes before
// calling Run or Handler; the table is immutable once traffic starts.
func (app *App) Routes() *router.Builder { return app.builder }

// OnShutdown registers a hook to run during graceful shutdown.
func (app *App) OnShutdown(hook ShutdownHook) {
	app.shutdownHooks = append(app.shutdownHooks, hook)
}

// Mount attaches a plain http.Handler at pattern, outside the routing
// tree and pipelines. Used for endpoints that need the raw connection,
// such as WebSocket upgrades or a metrics scrape endpoint.
func (app *App) Mount(pattern string, h http.Handler) {
	if app.mounts == nil {
		app.mounts = make(map[string]http.Handler)
	}
	app.mounts[pattern] = h
}

// Handler finalizes the route table and returns the dispatcher as an
// http.Handler. The first call builds; later calls return the same handler.
func (app *App) Handler() (http.Handler, error) {
	app.buildOnce.Do(func() {
		r, err := app.builder.Build()
		if err != nil {
			app.buildErr = err
			return
		}
		d := dispatch.New(r, dispatch.WithLogger(app.logger))
		if len(app.mounts) == 0 {
			app.handler = d
			return
		}
		mux := http.NewServeMux()
		for pattern, h := range app.mounts {
			mux.Handle(pattern, h)
		}
		mux.Handle("/", d)
		app.handler = mux
	})
	if app.buildErr != nil {
		return nil, app.buildErr
	}
	return app.handler, nil
}

// Run builds the router, starts the HTTP server and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func (app *App) Run() error {
	handler, err := app.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         app.config.Server.Address,
		Handler:      handler,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}
	app.mu.Lock()
	app.server = srv
	app.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		app.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	return app.Shutdown()
}

// Shutdown stops accepting connections, waits for in-flight requests up to
// the shutdown timeout, then runs the shutdown hooks in LIFO order.
func (app *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()

	app.mu.Lock()
	srv := app.server
	app.mu.Unlock()

	var firstErr error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			app.logger.Error("error shutting down HTTP server", zap.Error(err))
			firstErr = err
		}
	}

	for i := len(app.shutdownHooks) - 1; i >= 0; i-- {
		if err := app.shutdownHooks[i](ctx); err != nil {
			app.logger.Error("shutdown hook failed", zap.Int("index", i), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
