package publisher_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zuehlke/orgdata-sync/internal/publisher"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		config publisher.Config

		want    publisher.Config
		wantErr bool
	}{
		"Defaults applied": {
			config: publisher.Config{},
			want: publisher.Config{
				RepoPath:    ".",
				Pattern:     "data/*.json",
				Remote:      "origin",
				AuthorName:  "orgdata-sync",
				AuthorEmail: "orgdata-sync@noreply.local",
			},
		},
		"Token defaults username": {
			config: publisher.Config{Token: "secret"},
			want: publisher.Config{
				RepoPath:    ".",
				Pattern:     "data/*.json",
				Remote:      "origin",
				AuthorName:  "orgdata-sync",
				AuthorEmail: "orgdata-sync@noreply.local",
				Username:    "x-access-token",
				Token:       "secret",
			},
		},

		// Error cases
		"Invalid pattern errors": {
			config:  publisher.Config{Pattern: `data/[`},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.config.Sanitize(slog.Default())
			if tc.wantErr {
				require.Error(t, err, "Sanitize should return an error")
				return
			}
			require.NoError(t, err, "Sanitize should not return an error")
			assert.Equal(t, tc.want, tc.config, "Unexpected config after sanitization")
		})
	}
}

func TestNewNotARepository(t *testing.T) {
	t.Parallel()

	_, err := publisher.New(slog.Default(), publisher.Config{RepoPath: t.TempDir()})
	require.ErrorIs(t, err, publisher.ErrNoRepository, "New should reject a non-repository path")
}

func TestPublish(t *testing.T) {
	t.Parallel()

	workDir, remoteDir := initRepos(t)
	writeDataFiles(t, workDir)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "unrelated.txt"), []byte("local work\n"), 0600), "Setup: could not write unrelated file")

	p := newPublisher(t, workDir)
	hash, err := p.Publish(t.Context(), false)
	require.NoError(t, err, "Publish should not return an error")
	require.NotEmpty(t, hash, "Publish should return the commit hash")

	repo, err := git.PlainOpen(workDir)
	require.NoError(t, err, "could not open work repository")
	head, err := repo.Head()
	require.NoError(t, err, "could not get repository head")
	assert.Equal(t, hash, head.Hash().String(), "returned hash should be the new head")

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err, "could not read head commit")
	assert.Equal(t, "[AUTO] Update data.", commit.Message, "unexpected commit message")
	assert.Equal(t, "orgdata-sync", commit.Author.Name, "unexpected commit author")
	assert.Equal(t, int64(1756450800), commit.Author.When.Unix(), "unexpected commit author date")

	tree, err := commit.Tree()
	require.NoError(t, err, "could not read commit tree")
	_, err = tree.File("data/repos.json")
	assert.NoError(t, err, "commit should contain the dataset artifact")
	_, err = tree.File("data/last_update.json")
	assert.NoError(t, err, "commit should contain the marker file")
	_, err = tree.File("unrelated.txt")
	assert.Error(t, err, "commit should not contain files outside the pattern")

	remoteHead := remoteHeadHash(t, remoteDir)
	assert.Equal(t, hash, remoteHead, "remote branch should have been pushed to the new head")
}

func TestPublishNothingToCommit(t *testing.T) {
	t.Parallel()

	workDir, _ := initRepos(t)

	p := newPublisher(t, workDir)
	hash, err := p.Publish(t.Context(), false)
	require.NoError(t, err, "Publish should not return an error on a clean tree")
	assert.Empty(t, hash, "Publish should not create a commit on a clean tree")
}

func TestPublishDryRun(t *testing.T) {
	t.Parallel()

	workDir, _ := initRepos(t)
	writeDataFiles(t, workDir)

	repo, err := git.PlainOpen(workDir)
	require.NoError(t, err, "could not open work repository")
	before, err := repo.Head()
	require.NoError(t, err, "could not get repository head")

	p := newPublisher(t, workDir)
	hash, err := p.Publish(t.Context(), true)
	require.NoError(t, err, "Publish dry run should not return an error")
	assert.Empty(t, hash, "Publish dry run should not create a commit")

	after, err := repo.Head()
	require.NoError(t, err, "could not get repository head")
	assert.Equal(t, before.Hash(), after.Hash(), "dry run should not move the head")
}

func TestPublishLeavesUnrelatedChangesUntouched(t *testing.T) {
	t.Parallel()

	workDir, _ := initRepos(t)
	writeDataFiles(t, workDir)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "unrelated.txt"), []byte("local work\n"), 0600), "Setup: could not write unrelated file")

	p := newPublisher(t, workDir)
	_, err := p.Publish(t.Context(), false)
	require.NoError(t, err, "Publish should not return an error")

	repo, err := git.PlainOpen(workDir)
	require.NoError(t, err, "could not open work repository")
	wt, err := repo.Worktree()
	require.NoError(t, err, "could not get worktree")
	status, err := wt.Status()
	require.NoError(t, err, "could not get status")

	require.Contains(t, status, "unrelated.txt", "unrelated change should still be pending")
	assert.Equal(t, git.Untracked, status["unrelated.txt"].Worktree, "unrelated change should stay untracked")
}

func TestPublishPushFailureKeepsLocalCommit(t *testing.T) {
	t.Parallel()

	workDir, _ := initRepos(t)
	writeDataFiles(t, workDir)

	repo, err := git.PlainOpen(workDir)
	require.NoError(t, err, "could not open work repository")
	// Point origin at a path that does not exist so the push is rejected.
	require.NoError(t, repo.DeleteRemote("origin"), "Setup: could not delete remote")
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{filepath.Join(t.TempDir(), "gone")},
	})
	require.NoError(t, err, "Setup: could not re-create remote")

	p, err := publisher.New(slog.Default(), publisher.Config{RepoPath: workDir})
	require.NoError(t, err, "Setup: could not create publisher")

	hash, err := p.Publish(t.Context(), false)
	require.ErrorIs(t, err, publisher.ErrPush, "Publish should surface the push failure")
	require.NotEmpty(t, hash, "the local commit hash should still be returned")

	head, err := repo.Head()
	require.NoError(t, err, "could not get repository head")
	assert.Equal(t, hash, head.Hash().String(), "the local commit should survive a failed push")
}

// initRepos creates a work checkout with a seed commit and a bare remote it pushes to.
func initRepos(t *testing.T) (workDir, remoteDir string) {
	t.Helper()

	remoteDir = t.TempDir()
	_, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err, "Setup: could not init bare remote")

	workDir = t.TempDir()
	repo, err := git.PlainInit(workDir, false)
	require.NoError(t, err, "Setup: could not init work repository")

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remoteDir}})
	require.NoError(t, err, "Setup: could not create remote")

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "README.md"), []byte("# data\n"), 0600), "Setup: could not write seed file")
	wt, err := repo.Worktree()
	require.NoError(t, err, "Setup: could not get worktree")
	_, err = wt.Add("README.md")
	require.NoError(t, err, "Setup: could not stage seed file")
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "seed", Email: "seed@example.com", When: time.Now()},
	})
	require.NoError(t, err, "Setup: could not create seed commit")

	require.NoError(t, repo.Push(&git.PushOptions{RemoteName: "origin"}), "Setup: could not push seed commit")
	return workDir, remoteDir
}

func writeDataFiles(t *testing.T, workDir string) {
	t.Helper()

	dataDir := filepath.Join(workDir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0750), "Setup: could not create data dir")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "repos.json"), []byte(`{"1":{"name":"alpha"}}`), 0600), "Setup: could not write artifact")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "last_update.json"), []byte(`"2025-08-29T07:00:00Z"`), 0600), "Setup: could not write marker")
}

func newPublisher(t *testing.T, workDir string) publisher.Publisher {
	t.Helper()

	p, err := publisher.New(slog.Default(), publisher.Config{RepoPath: workDir},
		publisher.WithTimeProvider(publisher.MockTimeProvider{CurrentTime: 1756450800}))
	require.NoError(t, err, "Setup: could not create publisher")
	return p
}

func remoteHeadHash(t *testing.T, remoteDir string) string {
	t.Helper()

	repo, err := git.PlainOpen(remoteDir)
	require.NoError(t, err, "could not open remote repository")
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, err, "could not resolve remote master")
	return ref.Hash().String()
}
