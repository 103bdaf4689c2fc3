package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/preflight"
	"scribe/internal/queue"
	"scribe/internal/results"
	"scribe/internal/scheduler"
)

func newSchedulerCommand(ctx *commandContext) *cobra.Command {
	schedulerCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the task scheduler",
	}
	schedulerCmd.AddCommand(newSchedulerRunCommand(ctx))
	return schedulerCmd
}

func newSchedulerRunCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim and dispatch queued tasks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd.Context(), ctx, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Drain the queue once and exit instead of polling")
	return cmd
}

func runScheduler(cmdCtx context.Context, ctx *commandContext, once bool) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := scheduler.NewLock(cfg.SchedulerLockPath())
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release scheduler lock", logging.Error(err))
		}
	}()

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "worker-*.log")
	logPreflight(signalCtx, cfg, logger)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	sink, err := results.NewFileSink(cfg.Paths.ResultsDir)
	if err != nil {
		return err
	}
	launcher, err := scheduler.NewProcessLauncher(cfg, ctx.workerConfigPath(), logger)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(store, sink, launcher, scheduler.OptionsFromConfig(cfg.Scheduler), logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	logger.Info("scribe scheduler starting",
		logging.String("lock", lock.Path()),
		logging.String("queue_db", store.Path()),
		logging.String("worker_binary", launcher.Binary()),
	)

	if once {
		return drainOnce(signalCtx, sched, logger)
	}
	return sched.Run(signalCtx)
}

func drainOnce(ctx context.Context, sched *scheduler.Scheduler, logger *slog.Logger) error {
	if _, err := sched.Reap(ctx); err != nil {
		return fmt.Errorf("reap: %w", err)
	}
	processed := 0
	for ctx.Err() == nil {
		ran, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		if !ran {
			break
		}
		processed++
	}
	logger.Info("queue drained", logging.Int("tasks", processed), logging.Event("queue_drained"))
	return nil
}

func logPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if status.Available {
			continue
		}
		impact := "every worker will fail"
		if status.Optional {
			impact = "dependent features are degraded"
		}
		logging.WarnWithContext(logger, "dependency unavailable", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, status.Description),
			logging.String(logging.FieldImpact, impact),
		)
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run scribe check for details"),
			logging.String(logging.FieldImpact, "tasks may fail until resolved"),
		)
	}
}
