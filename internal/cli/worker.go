package cli

import (
	"context"
	"errors"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/backend"
	"tracker/internal/cache"
	"tracker/internal/log"
	"tracker/internal/worker"

	"github.com/spf13/cobra"
)

const seenCleanupInterval = 10 * time.Minute

func newWorkerCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:         "worker",
		Short:       "Mirror appended rows from the message queue into MIRROR_BACKEND",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStandalone: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunWorker(cmd.Context(), *configFile)
		},
	}
}

// NewWorkerRootCommand builds the standalone tracker-worker binary.
func NewWorkerRootCommand() *cobra.Command {
	var configFile string
	cmd := newWorkerCommand(&configFile)
	cmd.Use = "tracker-worker"
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./tracker.yaml if present)")
	return cmd
}

// ExecuteWorker runs the tracker-worker command and returns the exit code.
func ExecuteWorker() int {
	cmd := NewWorkerRootCommand()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		return ExitCode(err)
	}
	return 0
}

// RunWorker consumes append events and mirrors them into MIRROR_BACKEND
// until a shutdown signal arrives.
func RunWorker(parent context.Context, configFile string) error {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig(configFile)
	if err != nil {
		return userError("%v", err)
	}
	logger := SetupLogger(cfg.LogLevel, nil).WithComponent(log.ComponentWorker)
	logger.Info("Starting tracker-worker")

	mcfg, ok, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		return userError("%v", err)
	}
	if !ok || cfg.AMQPURL == "" {
		return userError("tracker-worker needs MIRROR_BACKEND and AMQP_URL")
	}

	ctx, cancel := GracefulShutdown(parent, logger)
	defer cancel()

	mirror, err := backend.NewFactory(logger).CreateBackend(ctx, mcfg)
	if err != nil {
		return err
	}
	defer mirror.Close()

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewMirrorWorker(mirror.Store, logger)
	caches := cache.NewManager()
	caches.Register(w)
	caches.StartCleanup(seenCleanupInterval)
	defer caches.Stop()

	logger.Info("Mirroring append events",
		"mirror", mirror.Type,
		"queue", cfg.AMQPQueue)
	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
