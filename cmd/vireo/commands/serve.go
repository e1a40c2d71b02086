package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vireo-web/vireo"
	"github.com/vireo-web/vireo/config"
	"github.com/vireo-web/vireo/middleware"
	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
	"github.com/vireo-web/vireo/ws"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var address string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a development server",
		Long: `Run a development server with a health endpoint, a Prometheus scrape
endpoint and a WebSocket echo hub. Useful for exercising configuration
and middleware without writing an application.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, address, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")
	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address (overrides config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "log config file changes")

	return cmd
}

func runServe(configPath, address string, watch bool) error {
	cfg := config.DefaultConfig()
	loader := config.NewSimpleLoader().
		WithYAMLFile(configPath).
		WithEnvPrefix("VIREO_")
	if err := loader.Load(cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if address != "" {
		cfg.Server.Address = address
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := cfg.BuildLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	app, err := vireo.New(vireo.WithConfig(cfg), vireo.WithLogger(logger))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	common := app.Pipelines().MustAdd(pipeline.New("common",
		middleware.RequestID(),
		middleware.AccessLog(logger),
		middleware.Recovery(logger),
		middleware.MetricsWithConfig(middleware.MetricsConfig{Registry: registry}),
	))

	root := app.Routes().Root(common)
	root.GET("/healthz", pipeline.HandlerFunc(
		func(ctx context.Context, s *state.State) (*response.Response, error) {
			return response.Success(http.StatusOK, map[string]string{"status": "ok"})
		}))

	hub := ws.NewHub(logger)
	go hub.Run()
	app.OnShutdown(hub.Stop)
	app.Mount("/ws", ws.Handler(hub, logger))
	app.Mount("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if watch {
		watcher, err := config.Watch(configPath, logger, func(updated *config.Config) {
			logger.Info("config file changed; restart to apply",
				zap.String("path", configPath))
		})
		if err != nil {
			logger.Warn("config watch unavailable", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	return app.Run()
}
