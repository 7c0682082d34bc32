// Package datastore is the implementation of the data writer component.
// The writer serializes fetched datasets into one JSON artifact per category
// inside the data directory, and refreshes the last-update marker file.
// Artifacts are always replaced in full, never merged.
package datastore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/ubuntu/decorate"
	"github.com/zuehlke/orgdata-sync/internal/constants"
	"github.com/zuehlke/orgdata-sync/internal/fileutils"
	"github.com/zuehlke/orgdata-sync/internal/github"
)

// Writer is an interface for the data writer component.
type Writer interface {
	// Write persists every dataset artifact, then refreshes the last-update marker.
	// Each file is written atomically, a failure never leaves a half-written artifact.
	Write(data map[string]github.Dataset) error

	// LastUpdate returns the marker timestamp of the most recent successful run.
	// A missing marker returns the zero time and no error.
	LastUpdate() (time.Time, error)
}

type timeProvider interface {
	Now() time.Time
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time {
	return time.Now()
}

type writer struct {
	dataDir string

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

// Options represents an optional function to override Writer default values.
type Options func(*options)

// Config represents the writer specific data needed to persist datasets.
type Config struct {
	DataDir string
}

// Sanitize sets defaults and checks that the Config is properly configured.
func (c *Config) Sanitize(l *slog.Logger) error {
	if c.DataDir == "" {
		c.DataDir = constants.DefaultDataDir
		l.Info("No data directory provided, defaulting to", "dataDir", c.DataDir)
	}
	return nil
}

// New returns a new Writer, creating the data directory if needed.
func New(l *slog.Logger, c Config, args ...Options) (Writer, error) {
	if err := c.Sanitize(l); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	opts := defaultOptions
	for _, opt := range args {
		opt(&opts)
	}

	return writer{
		dataDir:      c.DataDir,
		timeProvider: opts.timeProvider,
		log:          l,
	}, nil
}

// Write persists the dataset artifacts in deterministic (sorted) category order.
// The marker file is written last so it only changes once every artifact landed.
func (w writer) Write(data map[string]github.Dataset) (err error) {
	defer decorate.OnError(&err, "data write failed")

	categories := make([]string, 0, len(data))
	for category := range data {
		categories = append(categories, category)
	}
	slices.Sort(categories)

	for _, category := range categories {
		if err := w.writeArtifact(category, data[category]); err != nil {
			return err
		}
	}

	return w.writeMarker()
}

// LastUpdate reads the marker file of the previous run.
func (w writer) LastUpdate() (time.Time, error) {
	raw, err := os.ReadFile(filepath.Join(w.dataDir, constants.MarkerFileName))
	if os.IsNotExist(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read marker file: %v", err)
	}

	var stamp string
	if err := json.Unmarshal(raw, &stamp); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse marker file: %v", err)
	}

	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse marker timestamp %q: %v", stamp, err)
	}
	return t, nil
}

func (w writer) writeArtifact(category string, ds github.Dataset) error {
	raw, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset %s: %v", category, err)
	}

	path := filepath.Join(w.dataDir, category+constants.ArtifactExt)
	if err := fileutils.AtomicWrite(path, raw); err != nil {
		return fmt.Errorf("failed to write dataset %s: %v", category, err)
	}

	w.log.Info("Dataset artifact written", "file", path, "records", len(ds))
	return nil
}

func (w writer) writeMarker() error {
	stamp := w.timeProvider.Now().UTC().Format(time.RFC3339)
	raw, err := json.Marshal(stamp)
	if err != nil {
		return fmt.Errorf("failed to marshal marker timestamp: %v", err)
	}

	path := filepath.Join(w.dataDir, constants.MarkerFileName)
	if err := fileutils.AtomicWrite(path, raw); err != nil {
		return fmt.Errorf("failed to write marker file: %v", err)
	}

	w.log.Info("Last-update marker written", "file", path, "timestamp", stamp)
	return nil
}
