package commands_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zuehlke/orgdata-sync/cmd/orgdata-sync/commands"
	"github.com/zuehlke/orgdata-sync/internal/datasets"
	"github.com/zuehlke/orgdata-sync/internal/datastore"
	"github.com/zuehlke/orgdata-sync/internal/github"
	"github.com/zuehlke/orgdata-sync/internal/publisher"
)

// mockFetcher records the fetch calls and returns canned datasets.
type mockFetcher struct {
	fetchCalls     int
	rateLimitCalls int
	gotDefs        []datasets.Definition

	data map[string]github.Dataset
	err  error
}

func (m *mockFetcher) Fetch(ctx context.Context, defs []datasets.Definition) (map[string]github.Dataset, error) {
	m.fetchCalls++
	m.gotDefs = defs
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func (m *mockFetcher) RateLimit(ctx context.Context) (github.RateLimitStatus, error) {
	m.rateLimitCalls++
	return github.RateLimitStatus{Limit: 5000, Used: 12, Remaining: 4988, ResetAt: time.Unix(1756537200, 0)}, m.err
}

// mockWriter records writes.
type mockWriter struct {
	writeCalls int
	gotData    map[string]github.Dataset

	err error
}

func (m *mockWriter) Write(data map[string]github.Dataset) error {
	m.writeCalls++
	m.gotData = data
	return m.err
}

func (m *mockWriter) LastUpdate() (time.Time, error) {
	return time.Time{}, nil
}

// mockPublisher records publishes.
type mockPublisher struct {
	publishCalls int
	gotDryRun    bool

	hash string
	err  error
}

func (m *mockPublisher) Publish(ctx context.Context, dryRun bool) (string, error) {
	m.publishCalls++
	m.gotDryRun = dryRun
	if m.err != nil {
		return "", m.err
	}
	return m.hash, nil
}

// appMocks bundles the component mocks wired into an app under test.
type appMocks struct {
	fetcher   *mockFetcher
	writer    *mockWriter
	publisher *mockPublisher

	fetcherConfig   github.Config
	writerConfig    datastore.Config
	publisherConfig publisher.Config

	fetcherErr   error
	writerErr    error
	publisherErr error
}

// newAppForTests returns an app with all components mocked out and a token set,
// and the mocks to inspect after the run.
func newAppForTests(t *testing.T, args []string) (app *commands.App, mocks *appMocks) {
	t.Helper()

	mocks = &appMocks{
		fetcher: &mockFetcher{data: map[string]github.Dataset{
			"repos": {"1": {"id": float64(1), "name": "tools"}},
		}},
		writer:    &mockWriter{},
		publisher: &mockPublisher{hash: "f00dfeed"},
	}

	app, err := commands.New(
		commands.WithNewFetcher(func(l *slog.Logger, c github.Config, _ ...github.Options) (github.Fetcher, error) {
			mocks.fetcherConfig = c
			if mocks.fetcherErr != nil {
				return nil, mocks.fetcherErr
			}
			return mocks.fetcher, nil
		}),
		commands.WithNewWriter(func(l *slog.Logger, c datastore.Config, _ ...datastore.Options) (datastore.Writer, error) {
			mocks.writerConfig = c
			if mocks.writerErr != nil {
				return nil, mocks.writerErr
			}
			return mocks.writer, nil
		}),
		commands.WithNewPublisher(func(l *slog.Logger, c publisher.Config, _ ...publisher.Options) (publisher.Publisher, error) {
			mocks.publisherConfig = c
			if mocks.publisherErr != nil {
				return nil, mocks.publisherErr
			}
			return mocks.publisher, nil
		}),
	)
	require.NoError(t, err, "Setup: could not create app")

	app.SetArgs(append(args, "--token", "test-token"))
	return app, mocks
}
