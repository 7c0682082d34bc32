package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func installPublishCmd(app *App) {
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Commit and push previously written data artifacts",
		Long: `Stage the changed data artifacts in the local repository, commit them
with the automated commit message, and push the commit to the remote.
No-op when nothing matching the publish pattern changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running publish command")
			return app.publishRun(cmd.Context())
		},
	}

	installPublishFlags(publishCmd, app)
	publishCmd.Flags().BoolVarP(&app.config.dryRun, "dry-run", "d", false, "report what would be committed without committing or pushing")

	app.cmd.AddCommand(publishCmd)
}

// installPublishFlags registers the publisher flags, shared between publish and sync.
func installPublishFlags(cmd *cobra.Command, app *App) {
	cmd.Flags().StringVar(&app.config.Publish.RepoPath, "repo-path", "", "path to the local git checkout holding the data artifacts")
	cmd.Flags().StringVar(&app.config.Publish.Pattern, "pattern", "", "glob restricting which changed files are staged")
	cmd.Flags().StringVar(&app.config.Publish.Remote, "remote", "", "name of the git remote to push to")
	cmd.Flags().StringVar(&app.config.Publish.AuthorName, "author-name", "", "author name recorded on the automated commit")
	cmd.Flags().StringVar(&app.config.Publish.AuthorEmail, "author-email", "", "author email recorded on the automated commit")
}

// publishRun runs only the publish stage, for artifacts written by an earlier collect.
func (a App) publishRun(ctx context.Context) error {
	p, err := a.newPublisher(slog.Default(), a.config.Publish)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %v", err)
	}

	hash, err := p.Publish(ctx, a.config.dryRun)
	if err != nil {
		return err
	}
	if hash != "" {
		slog.Info("Published data changes", "commit", hash)
	}
	return nil
}
