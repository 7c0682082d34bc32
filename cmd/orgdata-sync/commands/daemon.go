package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zuehlke/orgdata-sync/internal/pipeline"
	"github.com/zuehlke/orgdata-sync/internal/scheduler"
)

func installDaemonCmd(app *App) {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync cycle on a fixed schedule",
		Long: `Run in the foreground and fire a full collect and publish cycle on the
configured cron schedule. A firing is skipped while a previous run is
still in flight, and a failed run is retried only at the next firing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running daemon command")
			return app.daemonRun(cmd.Context())
		},
	}

	daemonCmd.Flags().StringVar(&app.config.Daemon.Schedule, "schedule", "", "cron expression controlling when the sync cycle fires")
	daemonCmd.Flags().BoolVar(&app.config.Daemon.RunOnStart, "run-on-start", false, "fire one sync cycle immediately on startup")
	daemonCmd.Flags().StringVar(&app.config.Data.DataDir, "data-dir", "", "directory the dataset artifacts are written to")
	installPublishFlags(daemonCmd, app)

	app.cmd.AddCommand(daemonCmd)
}

// daemonRun blocks firing the full pipeline on the configured schedule until
// the process is interrupted. A configured definitions file is watched so
// edits take effect at the next firing without a restart.
func (a App) daemonRun(ctx context.Context) error {
	p, m, err := a.newPipeline(true)
	if err != nil {
		return err
	}

	s, err := scheduler.New(slog.Default(), a.config.Daemon, func(ctx context.Context, trigger pipeline.TriggerEvent) error {
		return p.Run(ctx, trigger, false)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if m != nil {
		reloaded, watchErr, err := m.Watch(ctx)
		if err != nil {
			return err
		}
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-reloaded:
					slog.Info("Dataset definitions reloaded", "path", a.config.Datasets)
				case err := <-watchErr:
					slog.Warn("Dataset definitions watch error", "error", err)
				}
			}
		}()
	}

	return s.Run(ctx)
}
