package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/queue"
	"scribe/internal/scheduler"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRetrySweepCommand(ctx))
	queueCmd.AddCommand(newQueueReapCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		title       string
		description string
		modeFlag    string
		model       string
		priorityStr string
		id          string
	)

	cmd := &cobra.Command{
		Use:   "add <url-or-path>",
		Short: "Queue a media source for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				ref := strings.TrimSpace(args[0])
				source := queue.SourceFromRef(ref)
				if source.Kind == queue.SourceLocal {
					expanded, err := config.ExpandPath(ref)
					if err != nil {
						return err
					}
					source.Ref = expanded
				}

				if strings.TrimSpace(modeFlag) == "" {
					modeFlag = cfg.Scheduler.DefaultMode
				}
				mode, ok := queue.ParseMode(modeFlag)
				if !ok {
					return fmt.Errorf("unknown mode %q (want local or cloud)", modeFlag)
				}
				priority, ok := queue.ParsePriority(priorityStr)
				if !ok {
					return fmt.Errorf("unknown priority %q (want manual or tracker)", priorityStr)
				}

				task, err := store.NewTask(cmd.Context(), queue.NewTaskParams{
					ID:          id,
					Priority:    priority,
					Source:      source,
					Mode:        mode,
					Title:       title,
					Description: description,
					SourceID:    media.SourceID(source.Ref),
					Model:       model,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued task %s (%s, %s, source id %s)\n", task.ID, task.Mode, task.Priority, task.SourceID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title hint")
	cmd.Flags().StringVar(&description, "description", "", "Description hint")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Transcription mode: local or cloud (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Override the primary transcription model")
	cmd.Flags().StringVar(&priorityStr, "priority", string(queue.PriorityManual), "Priority class: manual or tracker")
	cmd.Flags().StringVar(&id, "id", "", "Explicit task id (generated when empty)")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				tasks, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, buildTaskViews(tasks))
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{
						task.ID,
						displayTitle(task),
						renderStatus(task.Status, colorize),
						string(task.Priority),
						string(task.Mode),
						strconv.Itoa(task.RetryCount),
						task.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Priority", "Mode", "Retries", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show task details and diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				task, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if task == nil {
					return fmt.Errorf("task %s not found", args[0])
				}
				view := buildTaskView(task)
				if jsonOut {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID: %s\n", view.ID)
				fmt.Fprintf(out, "Title: %s\n", displayTitle(task))
				fmt.Fprintf(out, "Status: %s\n", renderStatus(task.Status, shouldColorize(out)))
				fmt.Fprintf(out, "Priority: %s\n", view.Priority)
				fmt.Fprintf(out, "Mode: %s\n", view.Mode)
				fmt.Fprintf(out, "Source: %s (%s)\n", view.Source, view.SourceKind)
				fmt.Fprintf(out, "Source ID: %s\n", view.SourceID)
				if view.Model != "" {
					fmt.Fprintf(out, "Model: %s\n", view.Model)
				}
				fmt.Fprintf(out, "Retries: %d\n", view.RetryCount)
				fmt.Fprintf(out, "Created: %s\n", view.CreatedAt)
				fmt.Fprintf(out, "Updated: %s\n", view.UpdatedAt)
				if diag := task.Diagnostic; diag != nil {
					fmt.Fprintf(out, "Diagnostic (%s): %s\n", diag.Origin, diag.Message)
					if diag.ExitCode != 0 {
						fmt.Fprintf(out, "Exit code: %d\n", diag.ExitCode)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				for _, status := range queue.AllStatuses() {
					if count := stats[status]; count > 0 {
						rows = append(rows, []string{string(status), strconv.Itoa(count)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the latest progress snapshot for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := ctx.sink()
			if err != nil {
				return err
			}
			status, err := sink.ReadStatus(args[0])
			if err != nil {
				return fmt.Errorf("no status snapshot for %s: %w", args[0], err)
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", status.Status)
			fmt.Fprintf(out, "Progress: %d%%\n", status.Progress)
			if status.ETA > 0 {
				fmt.Fprintf(out, "ETA: %ds\n", status.ETA)
			}
			if status.Message != "" {
				fmt.Fprintf(out, "Message: %s\n", status.Message)
			}
			fmt.Fprintf(out, "Updated: %s\n", status.UpdatedAt.Local().Format(time.RFC3339))
			if record, err := sink.ReadError(args[0]); err == nil {
				fmt.Fprintf(out, "Error (%s): %s\n", record.Origin, record.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newQueueRetrySweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry-sweep",
		Short: "Requeue failed tasks that still have retry budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				ids, err := store.RequeueFailed(cmd.Context(), cfg.Scheduler.MaxRetries)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintln(out, "No failed tasks eligible for retry")
					return nil
				}
				fmt.Fprintf(out, "Requeued %d task(s): %s\n", len(ids), strings.Join(ids, ", "))
				return nil
			})
		},
	}
}

func newQueueReapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Force-fail tasks stuck past their timeout",
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := ctx.sink()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				launcher, err := scheduler.NewProcessLauncher(cfg, ctx.workerConfigPath(), logging.NewNop())
				if err != nil {
					return err
				}
				sched, err := scheduler.New(store, sink, launcher, scheduler.OptionsFromConfig(cfg.Scheduler), logging.NewNop())
				if err != nil {
					return err
				}
				result, err := sched.Reap(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if result.Total() == 0 {
					fmt.Fprintln(out, "No stuck tasks")
					return nil
				}
				fmt.Fprintf(out, "Reaped %d processing and %d queued task(s)\n", len(result.Processing), len(result.Queued))
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Summarize queue health (stale and retry-exhausted tasks)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				now := time.Now()
				opts := scheduler.OptionsFromConfig(cfg.Scheduler)
				health, err := store.Health(cmd.Context(),
					now.Add(-opts.ProcessingTimeout),
					now.Add(-opts.QueuedTimeout),
					cfg.Scheduler.MaxRetries,
				)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", store.Path())
				fmt.Fprintf(out, "Total tasks: %d\n", health.Total)
				fmt.Fprintf(out, "Queued: %d\n", health.Queued)
				fmt.Fprintf(out, "Processing: %d\n", health.Processing)
				fmt.Fprintf(out, "Completed: %d\n", health.Completed)
				fmt.Fprintf(out, "Failed: %d\n", health.Failed)
				fmt.Fprintf(out, "Stale queued: %d\n", health.StaleQueued)
				fmt.Fprintf(out, "Stale processing: %d\n", health.StaleRunning)
				fmt.Fprintf(out, "Retry exhausted: %d\n", health.RetryExhausted)
				fmt.Fprintf(out, "Healthy: %s\n", yesNo(health.StaleQueued == 0 && health.StaleRunning == 0))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

type taskView struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	Mode        string            `json:"mode"`
	Source      string            `json:"source"`
	SourceKind  string            `json:"source_kind"`
	SourceID    string            `json:"source_id,omitempty"`
	Model       string            `json:"model,omitempty"`
	RetryCount  int               `json:"retry_count"`
	Diagnostic  *queue.Diagnostic `json:"diagnostic,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func buildTaskView(task *queue.Task) taskView {
	return taskView{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		Mode:        string(task.Mode),
		Source:      task.Source.Ref,
		SourceKind:  string(task.Source.Kind),
		SourceID:    task.SourceID,
		Model:       task.Model,
		RetryCount:  task.RetryCount,
		Diagnostic:  task.Diagnostic,
		CreatedAt:   task.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func buildTaskViews(tasks []*queue.Task) []taskView {
	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, buildTaskView(task))
	}
	return views
}

func displayTitle(task *queue.Task) string {
	if title := strings.TrimSpace(task.Title); title != "" {
		return title
	}
	if task.SourceID != "" {
		return task.SourceID
	}
	return task.Source.Ref
}
