package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ramsey-B/trellis/pkg/startup"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the Kafka execution worker",
	Long: `Start the trellis HTTP API and, unless KAFKA_CONSUMER_ENABLED is false,
the worker that executes mappings for messages on the input topic.

The server provides:
- schema and mapping CRUD under /schemas and /mappings
- transformation and filter previews
- /health/live, /health/ready and /metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 3000, "port to listen on")
	serveCmd.Flags().Bool("no-worker", false, "serve the API without the Kafka worker")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); noWorker {
		cfg.KafkaConsumerEnabled = false
	}

	logger, zapLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := tracing.Setup(ctx, logger, cfg.Tracing())
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.WithError(err).Warn("failed to flush traces")
			}
		}()
	}

	srv := newServer(cfg, logger)
	srv.listen()

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	for _, dependency := range srv.dependencies() {
		boot.AddDependency(dependency)
	}

	startErr := boot.Start(ctx)
	if startErr == nil {
		srv.health.SetReady(true)
		logger.Infof("%s is ready", cfg.AppName)

		select {
		case <-ctx.Done():
			logger.Info("received shutdown signal")
		case startErr = <-srv.httpErrors:
			logger.WithError(startErr).Error("http server stopped")
		}
	}
	srv.health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to stop dependencies")
	}
	if err := srv.shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to stop http server")
	}

	return startErr
}
