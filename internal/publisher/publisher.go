// Package publisher is the implementation of the change publisher component.
// The publisher stages the dataset artifacts and marker file inside an existing
// git checkout, commits them under the fixed automation message, and pushes the
// commit to the checked-out branch. Files outside the configured pattern are
// never staged, unrelated local changes stay untouched.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/ubuntu/decorate"
	"github.com/zuehlke/orgdata-sync/internal/constants"
)

var (
	// ErrNoRepository is returned when the configured path is not a git checkout.
	ErrNoRepository = errors.New("not a git repository")
	// ErrPush is returned when the remote rejects the push. The local commit is kept,
	// the next run re-attempts from scratch.
	ErrPush = errors.New("push rejected by remote")
)

// Publisher is an interface for the change publisher component.
type Publisher interface {
	// Publish stages the pattern-matched files, commits them, and pushes the commit.
	// It returns the new commit hash, or an empty string when there was nothing to commit.
	// If dryRun is true, it only reports what would be committed.
	Publish(ctx context.Context, dryRun bool) (string, error)
}

// Config represents the publisher specific data needed to commit and push.
type Config struct {
	RepoPath string
	Pattern  string
	Remote   string

	AuthorName  string
	AuthorEmail string

	Username string
	Token    string
}

// Sanitize sets defaults and checks that the Config is properly configured.
func (c *Config) Sanitize(l *slog.Logger) error {
	if c.RepoPath == "" {
		c.RepoPath = "."
	}
	if c.Pattern == "" {
		c.Pattern = constants.DefaultPublishPattern
		l.Info("No publish pattern provided, defaulting to", "pattern", c.Pattern)
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		return fmt.Errorf("invalid publish pattern %q: %v", c.Pattern, err)
	}
	if c.Remote == "" {
		c.Remote = "origin"
	}
	if c.AuthorName == "" {
		c.AuthorName = constants.DefaultCommitAuthor
	}
	if c.AuthorEmail == "" {
		c.AuthorEmail = constants.DefaultCommitEmail
	}
	if c.Token != "" && c.Username == "" {
		c.Username = "x-access-token"
	}
	return nil
}

type timeProvider interface {
	Now() time.Time
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time {
	return time.Now()
}

type publisher struct {
	repo *git.Repository

	pattern     string
	remote      string
	authorName  string
	authorEmail string
	username    string
	token       string

	timeProvider timeProvider

	log *slog.Logger
}

type options struct {
	// Private members exported for tests.
	timeProvider timeProvider
}

var defaultOptions = options{
	timeProvider: realTimeProvider{},
}

// Options represents an optional function to override Publisher default values.
type Options func(*options)

// New returns a new Publisher operating on the checkout at c.RepoPath.
func New(l *slog.Logger, c Config, args ...Options) (Publisher, error) {
	if err := c.Sanitize(l); err != nil {
		return nil, err
	}

	repo, err := git.PlainOpen(c.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoRepository, c.RepoPath, err)
	}

	opts := defaultOptions
	for _, opt := range args {
		opt(&opts)
	}

	return publisher{
		repo:         repo,
		pattern:      c.Pattern,
		remote:       c.Remote,
		authorName:   c.AuthorName,
		authorEmail:  c.AuthorEmail,
		username:     c.Username,
		token:        c.Token,
		timeProvider: opts.timeProvider,
		log:          l,
	}, nil
}

// Publish stages every changed file matching the pattern, commits, and pushes.
func (p publisher) Publish(ctx context.Context, dryRun bool) (hash string, err error) {
	defer decorate.OnError(&err, "publish failed")

	wt, err := p.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %v", err)
	}

	changed, err := p.changedFiles(wt)
	if err != nil {
		return "", err
	}

	if len(changed) == 0 {
		p.log.Info("No changes matching publish pattern, nothing to commit")
		return "", nil
	}

	if dryRun {
		p.log.Info("Dry run, not committing", "files", changed)
		return "", nil
	}

	for _, file := range changed {
		if _, err := wt.Add(file); err != nil {
			return "", fmt.Errorf("failed to stage %s: %v", file, err)
		}
	}

	now := p.timeProvider.Now()
	commit, err := wt.Commit(constants.CommitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.authorName,
			Email: p.authorEmail,
			When:  now,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %v", err)
	}
	p.log.Info("Data commit created", "commit", commit.String(), "files", changed)

	if err := p.push(ctx); err != nil {
		return commit.String(), err
	}

	return commit.String(), nil
}

// changedFiles returns the worktree-status paths matching the publish pattern, sorted.
func (p publisher) changedFiles(wt *git.Worktree) ([]string, error) {
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree status: %v", err)
	}

	var changed []string
	for file, s := range status {
		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		match, err := filepath.Match(p.pattern, filepath.ToSlash(file))
		if err != nil {
			return nil, fmt.Errorf("invalid publish pattern %q: %v", p.pattern, err)
		}
		if !match {
			p.log.Debug("Skipping change outside publish pattern", "file", file)
			continue
		}
		changed = append(changed, file)
	}

	// Stable order for logs and commit reproducibility.
	slices.Sort(changed)
	return changed, nil
}

func (p publisher) push(ctx context.Context) error {
	pushOptions := &git.PushOptions{RemoteName: p.remote}
	if p.token != "" {
		pushOptions.Auth = &http.BasicAuth{Username: p.username, Password: p.token}
	}

	err := p.repo.PushContext(ctx, pushOptions)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		p.log.Info("Remote already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPush, err)
	}

	p.log.Info("Data commit pushed", "remote", p.remote)
	return nil
}
