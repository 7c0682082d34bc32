// Package commands contains the commands of the orgdata-sync command line tool.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zuehlke/orgdata-sync/internal/cli"
	"github.com/zuehlke/orgdata-sync/internal/constants"
	"github.com/zuehlke/orgdata-sync/internal/datasets"
	"github.com/zuehlke/orgdata-sync/internal/datastore"
	"github.com/zuehlke/orgdata-sync/internal/fileutils"
	"github.com/zuehlke/orgdata-sync/internal/github"
	"github.com/zuehlke/orgdata-sync/internal/publisher"
	"github.com/zuehlke/orgdata-sync/internal/scheduler"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	newFetcher   newFetcher
	newWriter    newWriter
	newPublisher newPublisher
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int
	JSONLogs  bool
	Datasets  string
	TokenFile string

	Collect github.Config
	Data    datastore.Config
	Publish publisher.Config
	Daemon  scheduler.Config

	dryRun bool
}

type newFetcher func(l *slog.Logger, c github.Config, args ...github.Options) (github.Fetcher, error)
type newWriter func(l *slog.Logger, c datastore.Config, args ...datastore.Options) (datastore.Writer, error)
type newPublisher func(l *slog.Logger, c publisher.Config, args ...publisher.Options) (publisher.Publisher, error)

type options struct {
	// Private members exported for tests.
	newFetcher   newFetcher
	newWriter    newWriter
	newPublisher newPublisher
}

var defaultOptions = options{
	newFetcher:   github.New,
	newWriter:    datastore.New,
	newPublisher: publisher.New,
}

// Options represents an optional function to override App default values.
type Options func(*options)

// New registers commands and returns a new App.
func New(args ...Options) (*App, error) {
	opts := defaultOptions
	for _, opt := range args {
		opt(&opts)
	}

	a := App{
		newFetcher:   opts.newFetcher,
		newWriter:    opts.newWriter,
		newPublisher: opts.newPublisher,
	}

	a.cmd = &cobra.Command{
		Use:   constants.CmdName + " COMMAND",
		Short: "Collect and publish public GitHub organization data",
		Long: `Collect public repository and member data of a GitHub organization,
write it as versioned JSON artifacts, and publish the changes with an automated commit.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true

			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			))); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}
			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs)

			if a.config.Collect.Token == "" && a.config.TokenFile != "" {
				a.config.Collect.Token = fileutils.ReadFileLogError(a.config.TokenFile, slog.Default())
			}
			if a.config.Collect.Token == "" {
				a.config.Collect.Token = os.Getenv(constants.TokenEnv)
			}
			if a.config.Publish.Token == "" {
				a.config.Publish.Token = a.config.Collect.Token
			}
			return nil
		},
	}
	a.viper = viper.New()

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	installCollectCmd(&a)
	installPublishCmd(&a)
	installSyncCmd(&a)
	installDaemonCmd(&a)
	installRateLimitCmd(&a)
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "emit logs in JSON format")

	cmd.PersistentFlags().StringVar(&app.config.Collect.Org, "org", "", fmt.Sprintf("GitHub organization to collect data for (default %q)", constants.DefaultOrg))
	cmd.PersistentFlags().StringVar(&app.config.Collect.BaseURL, "base-url", "", "base URL of the GitHub REST API")
	cmd.PersistentFlags().StringVar(&app.config.Collect.Token, "token", "", "GitHub API access token (defaults to the "+constants.TokenEnv+" environment variable)")
	cmd.PersistentFlags().StringVar(&app.config.TokenFile, "token-file", "", "file holding the GitHub API access token, used when no token is set")
	if err := cmd.MarkPersistentFlagFilename("token-file"); err != nil {
		slog.Error("An error occurred while initializing the token-file flag", "error", err)
	}

	cmd.PersistentFlags().StringVar(&app.config.Datasets, "datasets", "", "path to a TOML file defining the datasets to collect")
	if err := cmd.MarkPersistentFlagFilename("datasets", "toml"); err != nil {
		slog.Error("An error occurred while initializing the datasets flag", "error", err)
	}
}

// definitions returns the dataset definitions provider and, when a definitions
// file is configured, the manager so the daemon can watch it for changes.
func (a App) definitions() (func() []datasets.Definition, *datasets.Manager, error) {
	if a.config.Datasets == "" {
		return datasets.Default, nil, nil
	}

	m := datasets.New(slog.Default(), a.config.Datasets)
	if err := m.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load dataset definitions: %v", err)
	}
	return m.Definitions, m, nil
}

// Run executes the command and associated process, returning an error if any.
func (a App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

func (a *App) installVersion() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Returns the version of the app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("%s\t%s\n", constants.CmdName, constants.Version)
			return nil
		},
	}
	a.cmd.AddCommand(cmd)
}
