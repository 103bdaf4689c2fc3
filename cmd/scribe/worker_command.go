package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/queue"
	"scribe/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var params worker.Params

	cmd := &cobra.Command{
		Use:    "worker <task-id> <mode>",
		Short:  "Execute one task in this process (spawned by the scheduler)",
		Args:   cobra.ExactArgs(2),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := queue.ParseMode(args[1])
			if !ok {
				return fmt.Errorf("unknown mode %q (want local or cloud)", args[1])
			}
			if strings.TrimSpace(params.SourceRef) == "" {
				return fmt.Errorf("--source is required")
			}
			params.TaskID = strings.TrimSpace(args[0])
			params.Mode = mode
			if strings.TrimSpace(params.SourceID) == "" {
				params.SourceID = media.SourceID(params.SourceRef)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.NewForWorker(cfg, params.TaskID)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runner, err := worker.NewFromConfig(cfg, mode, store, logger)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runner.Run(signalCtx, params)
		},
	}

	cmd.Flags().StringVar(&params.SourceRef, "source", "", "Media URL or local file path")
	cmd.Flags().StringVar(&params.SourceID, "source-id", "", "Stable source id (derived from --source when empty)")
	cmd.Flags().StringVar(&params.Title, "title", "", "Title hint for correction and summaries")
	cmd.Flags().StringVar(&params.Description, "description", "", "Description hint for correction and summaries")
	cmd.Flags().StringVar(&params.Model, "model", "", "Override the primary transcription model")
	return cmd
}
