package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/zuehlke/orgdata-sync/internal/pipeline"
)

func installSyncCmd(app *App) {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one full collect and publish cycle",
		Long: `Fetch the configured datasets, write the JSON artifacts, and publish the
changes with an automated commit. This is the same cycle the daemon runs
on its schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running sync command")
			return app.syncRun(cmd.Context())
		},
	}

	syncCmd.Flags().StringVar(&app.config.Data.DataDir, "data-dir", "", "directory the dataset artifacts are written to")
	installPublishFlags(syncCmd, app)
	syncCmd.Flags().BoolVarP(&app.config.dryRun, "dry-run", "d", false, "fetch the datasets but do not write, commit, or push anything")

	app.cmd.AddCommand(syncCmd)
}

// syncRun runs the full pipeline once with the manual trigger origin.
func (a App) syncRun(ctx context.Context) error {
	p, _, err := a.newPipeline(true)
	if err != nil {
		return err
	}

	return p.Run(ctx, pipeline.NewTrigger(pipeline.OriginManual, time.Time{}), a.config.dryRun)
}
