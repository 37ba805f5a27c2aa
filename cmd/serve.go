package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"svitlo/internal/api"
	"svitlo/internal/clock"
	"svitlo/internal/config"
	"svitlo/internal/coordinator"
	"svitlo/internal/entity"
	"svitlo/internal/ha"
	"svitlo/internal/integration"
	"svitlo/internal/mqtt"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the outage calendar service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(opts.debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := config.LoadEnv(opts.envFile); err != nil {
		logger.Warn("No .env file found, using environment variables", zap.String("path", opts.envFile))
	}

	cfg, err := config.NewLoader(opts.configPath, logger).Load()
	if err != nil {
		return err
	}

	var mqttClient *mqtt.Client
	if cfg.Source.Type == config.SourceMQTT {
		mqttClient, err = mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer mqttClient.Close()
	}

	source, err := newSource(cfg, mqttClient, logger)
	if err != nil {
		return err
	}

	labeler, haClient := newLabeler(cfg, logger)
	if haClient != nil {
		defer haClient.Disconnect()
	}

	manager := integration.NewManager()
	entry := integration.Entry{
		Region:              cfg.Region,
		Queue:               cfg.Queue,
		Title:               cfg.Title,
		ScanInterval:        cfg.PollInterval(),
		Location:            cfg.Location(),
		MergeAcrossMidnight: cfg.MergeAcrossMidnight,
	}
	deps := integration.Deps{
		Source:  source,
		Labeler: labeler,
		Logger:  logger,
	}
	if err := loadWithRetry(ctx, clock.NewRealClock(), manager, entry, deps, logger); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to set up %s: %w", entry.UniqueID(), err)
	}
	defer manager.UnloadAll()

	server := api.NewServer(manager, clock.NewRealClock(), logger, cfg.API.Port)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	logger.Info("Service running. Press Ctrl+C to exit.")
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	return nil
}

const (
	setupRetryInitial = 5 * time.Second
	setupRetryMax     = 5 * time.Minute
)

// loadWithRetry loads entry, retrying with backoff while the first refresh
// fails. The schedule poller may not have produced anything yet when the
// service starts. Other setup errors are returned at once.
func loadWithRetry(ctx context.Context, clk clock.Clock, manager *integration.Manager,
	entry integration.Entry, deps integration.Deps, logger *zap.Logger) error {
	delay := setupRetryInitial
	for {
		_, err := manager.Load(ctx, entry, deps)
		if err == nil {
			return nil
		}
		if !errors.Is(err, coordinator.ErrFirstRefresh) {
			return err
		}

		logger.Warn("Schedule not available yet, retrying setup",
			zap.String("entry", entry.UniqueID()),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(delay):
		}

		delay *= 2
		if delay > setupRetryMax {
			delay = setupRetryMax
		}
	}
}

func newSource(cfg *config.Config, client *mqtt.Client, logger *zap.Logger) (coordinator.Source, error) {
	switch cfg.Source.Type {
	case config.SourceMQTT:
		return coordinator.NewMQTTSource(client, cfg.Source.MQTTTopic, byte(cfg.MQTT.QoS), logger)
	default:
		return coordinator.NewFileSource(cfg.Source.Path), nil
	}
}

// newLabeler connects to Home Assistant when configured. Device names are
// optional, so a failed connection only disables them.
func newLabeler(cfg *config.Config, logger *zap.Logger) (entity.Labeler, *ha.Client) {
	if cfg.HomeAssistant.URL == "" {
		return nil, nil
	}

	client := ha.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, logger)
	if err := client.Connect(); err != nil {
		logger.Warn("Home Assistant unavailable, using default labels", zap.Error(err))
		return nil, nil
	}
	return ha.NewDeviceLabeler(client, entity.Domain, cfg.Region, cfg.Queue, logger), client
}
