// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default configuration and data paths.
package constants

import (
	"log/slog"
)

var (
	// Version is the version of the application.
	Version = "Dev"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "orgdata-sync"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// DefaultOrg is the organization whose public data is collected when none is provided.
	DefaultOrg = "zuehlke"

	// DefaultAPIBaseURL is the base URL of the GitHub REST API.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultDataDir is the directory inside the checkout where dataset artifacts are written.
	DefaultDataDir = "data"

	// DefaultPublishPattern is the glob, relative to the repository root, restricting which
	// files the publisher is allowed to stage.
	DefaultPublishPattern = "data/*.json"

	// DefaultBranch is the branch the publisher commits to and pushes.
	DefaultBranch = "master"

	// DefaultSchedule is the cron expression used by the daemon when none is configured.
	DefaultSchedule = "0 4 * * *"

	// ArtifactExt is the extension of the dataset artifact files.
	ArtifactExt = ".json"

	// MarkerFileName is the name of the last-update marker file.
	MarkerFileName = "last_update.json"

	// CommitMessage is the fixed message used for every automated data commit.
	CommitMessage = "[AUTO] Update data."

	// DefaultCommitAuthor is the author name recorded on automated data commits.
	DefaultCommitAuthor = "orgdata-sync"

	// DefaultCommitEmail is the author email recorded on automated data commits.
	DefaultCommitEmail = "orgdata-sync@noreply.local"

	// TokenEnv is the environment variable holding the API credential.
	TokenEnv = "GITHUB_TOKEN"
)
