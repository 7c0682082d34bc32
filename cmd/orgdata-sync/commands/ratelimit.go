package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func installRateLimitCmd(app *App) {
	rateLimitCmd := &cobra.Command{
		Use:   "rate-limit",
		Short: "Show the remaining GitHub API rate limit budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("Running rate-limit command")
			return app.rateLimitRun(cmd.Context(), cmd)
		},
	}

	app.cmd.AddCommand(rateLimitCmd)
}

// rateLimitRun queries the API rate limit status for the configured credential.
func (a App) rateLimitRun(ctx context.Context, cmd *cobra.Command) error {
	f, err := a.newFetcher(slog.Default(), a.config.Collect)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %v", err)
	}

	status, err := f.RateLimit(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("limit:     %d\nused:      %d\nremaining: %d\nresets at: %s\n",
		status.Limit, status.Used, status.Remaining, status.ResetAt.UTC().Format(time.RFC3339))
	return nil
}
