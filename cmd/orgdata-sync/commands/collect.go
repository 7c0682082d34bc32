package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/zuehlke/orgdata-sync/internal/datasets"
	"github.com/zuehlke/orgdata-sync/internal/pipeline"
	"github.com/zuehlke/orgdata-sync/internal/publisher"
)

func installCollectCmd(app *App) {
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch organization data and write the JSON artifacts",
		Long: `Fetch the configured datasets from the GitHub API and write them as JSON
artifacts to the data directory, together with the last-update marker.
Nothing is committed or pushed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running collect command")
			return app.collectRun(cmd.Context())
		},
	}

	collectCmd.Flags().StringVar(&app.config.Data.DataDir, "data-dir", "", "directory the dataset artifacts are written to")
	collectCmd.Flags().BoolVarP(&app.config.dryRun, "dry-run", "d", false, "fetch the datasets but do not write any files")

	app.cmd.AddCommand(collectCmd)
}

// collectRun runs the pipeline without a publisher.
func (a App) collectRun(ctx context.Context) error {
	p, _, err := a.newPipeline(false)
	if err != nil {
		return err
	}

	return p.Run(ctx, pipeline.NewTrigger(pipeline.OriginManual, time.Time{}), a.config.dryRun)
}

// newPipeline assembles a pipeline from the app configuration.
// withPublisher controls whether the publish stage is wired in.
// The returned manager is nil unless a definitions file is configured.
func (a App) newPipeline(withPublisher bool) (*pipeline.Pipeline, *datasets.Manager, error) {
	l := slog.Default()

	defs, m, err := a.definitions()
	if err != nil {
		return nil, nil, err
	}

	f, err := a.newFetcher(l, a.config.Collect)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create fetcher: %v", err)
	}

	w, err := a.newWriter(l, a.config.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create data writer: %v", err)
	}

	var pub publisher.Publisher
	if withPublisher {
		pub, err = a.newPublisher(l, a.config.Publish)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create publisher: %v", err)
		}
	}

	p, err := pipeline.New(l, f, w, pub, defs)
	return p, m, err
}
