package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vulnagent/internal/client"
	"vulnagent/internal/config"
	"vulnagent/internal/conversation"
	"vulnagent/internal/history"
	"vulnagent/internal/observability"
	"vulnagent/internal/presentation"
	"vulnagent/internal/shared/logging"
	"vulnagent/internal/shared/utils"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg      config.Config
	meta     config.Metadata
	logger   logging.Logger
	metrics  *observability.MetricsCollector
	tracer   *observability.TracerProvider
	client   *client.AgentClient
	history  *history.Store
	service  *conversation.Service
	renderer presentation.Renderer
}

// loadConfig reads configuration and layers explicitly set flags on top.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, config.Metadata, error) {
	var loadOpts []config.Option
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(opts.configFile))
	}
	changed := func(name string) bool {
		return cmd.Flags().Changed(name)
	}
	if changed("agent-url") {
		loadOpts = append(loadOpts, config.WithOverride("agent_url", opts.agentURL))
	}
	if changed("swarm") {
		loadOpts = append(loadOpts, config.WithOverride("swarm_mode", opts.swarm))
	}
	if changed("output") {
		loadOpts = append(loadOpts, config.WithOverride("render.format", opts.output))
	}
	if changed("no-color") {
		loadOpts = append(loadOpts, config.WithOverride("render.color", !opts.noColor))
	}
	if changed("markdown") {
		loadOpts = append(loadOpts, config.WithOverride("render.markdown", opts.markdown))
	}
	if changed("log-level") {
		loadOpts = append(loadOpts, config.WithOverride("observability.logging.level", opts.logLevel))
	}
	return config.Load(loadOpts...)
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, meta, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	// The file loggers resolve their directory lazily, so the override must be
	// in place before the first logger is created.
	if dir := strings.TrimSpace(cfg.Observability.Logging.Dir); dir != "" {
		if err := os.Setenv("VULNAGENT_LOG_DIR", dir); err != nil {
			return nil, fmt.Errorf("set log dir: %w", err)
		}
	}
	utils.SetDefaultLevel(utils.ParseLevel(cfg.Observability.Logging.Level))
	logger := logging.NewComponentLogger("cli")
	if meta.ConfigFile != "" {
		logger.Debug("loaded config from %s", meta.ConfigFile)
	}

	metrics, err := observability.NewMetricsCollector(cfg.Observability.Metrics)
	if err != nil {
		return nil, err
	}
	tracer, err := observability.NewTracerProvider(cfg.Observability.Tracing)
	if err != nil {
		_ = metrics.Shutdown(context.Background())
		return nil, err
	}

	agentClient := client.NewAgentClient(cfg.AgentURL,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logging.NewTransportLogger("client")),
		client.WithTracer(tracer.Tracer()),
		client.WithRecorder(metrics),
	)
	store := history.NewStore(cfg.History.Size)
	service := conversation.NewService(agentClient,
		conversation.WithLogger(logging.NewComponentLogger("conversation")),
		conversation.WithHistory(store),
		conversation.WithTracer(tracer),
		conversation.WithMetrics(metrics),
	)

	renderer, err := presentation.NewRenderer(cfg.Render.Format, presentation.TextOptions{
		Color:    cfg.Render.Color,
		Markdown: cfg.Render.Markdown,
	})
	if err != nil {
		_ = tracer.Shutdown(context.Background())
		_ = metrics.Shutdown(context.Background())
		return nil, err
	}

	return &app{
		cfg:      cfg,
		meta:     meta,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		client:   agentClient,
		history:  store,
		service:  service,
		renderer: renderer,
	}, nil
}

// Close flushes telemetry. Both shutdowns run even if one fails.
func (a *app) Close() error {
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return a.tracer.Shutdown(ctx) })
	g.Go(func() error { return a.metrics.Shutdown(ctx) })
	if err := g.Wait(); err != nil {
		a.logger.Warn("telemetry shutdown: %v", err)
		return err
	}
	return nil
}
