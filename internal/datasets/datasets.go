// Package datasets is the implementation of the dataset definitions component.
// Dataset definitions describe which categories of organization data are collected,
// which collection flow each category uses, and which response fields are kept.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/ubuntu/decorate"
)

var (
	// ErrNoDefinitions is returned when a definitions file contains no datasets.
	ErrNoDefinitions = errors.New("definitions file contains no datasets")
	// ErrInvalidDefinition is returned when a dataset definition fails validation.
	ErrInvalidDefinition = errors.New("invalid dataset definition")
)

// Flow identifies the collection flow used to fetch a dataset category.
type Flow string

const (
	// FlowRepos collects the organization's repository listing.
	FlowRepos Flow = "repos"
	// FlowMembers collects the organization's member listing, with one detail request per member.
	FlowMembers Flow = "members"
)

// Definition describes one dataset category.
type Definition struct {
	Name   string   `toml:"name"`
	Flow   Flow     `toml:"flow"`
	Fields []string `toml:"fields"`
}

type defFile struct {
	Datasets []Definition `toml:"datasets"`
}

// Manager loads, validates, and watches a dataset definitions file.
type Manager struct {
	path string

	mu          sync.RWMutex
	definitions []Definition

	log *slog.Logger
}

// Default returns the built-in dataset definitions, used when no definitions file is provided.
func Default() []Definition {
	return []Definition{
		{
			Name: "repos",
			Flow: FlowRepos,
			Fields: []string{
				"id", "name", "owner.login", "owner.id", "html_url",
				"created_at", "updated_at", "stargazers_count", "language", "forks_count",
			},
		},
		{
			Name:   "persons",
			Flow:   FlowMembers,
			Fields: []string{"id", "login", "name", "bio", "avatar_url", "html_url"},
		},
	}
}

// New returns a new definitions Manager for the given file path.
// An empty path means the built-in default definitions are used.
func New(l *slog.Logger, path string) *Manager {
	return &Manager{log: l, path: path}
}

// Load reads and validates the definitions file, replacing the current definitions.
func (m *Manager) Load() (err error) {
	defer decorate.OnError(&err, "could not load dataset definitions")

	defs := Default()
	if m.path != "" {
		var df defFile
		if _, err := toml.DecodeFile(m.path, &df); err != nil {
			return fmt.Errorf("failed to decode %s: %v", m.path, err)
		}
		defs = df.Datasets
	}

	if err := validate(defs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions = defs
	m.log.Debug("Dataset definitions loaded", "path", m.path, "datasets", len(defs))
	return nil
}

// Definitions returns a copy of the current definitions.
func (m *Manager) Definitions() []Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defs := make([]Definition, len(m.definitions))
	copy(defs, m.definitions)
	return defs
}

// Watch watches the definitions file for changes, reloading it when it is rewritten.
// It returns a channel notified after each successful reload, and a channel for watch errors.
// Watching an empty path is an error, as the built-in defaults cannot change.
func (m *Manager) Watch(ctx context.Context) (<-chan struct{}, <-chan error, error) {
	if m.path == "" {
		return nil, nil, errors.New("no definitions file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file watcher: %v", err)
	}

	// Watch the parent directory so atomic replaces (rename over the file) are seen.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to watch %s: %v", m.path, err)
	}
	if _, err := os.Stat(m.path); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to stat definitions file: %v", err)
	}

	watchEvent := make(chan struct{}, 1)
	watchErr := make(chan error, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(m.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := m.Load(); err != nil {
					m.log.Warn("Failed to reload dataset definitions, keeping previous", "error", err)
					continue
				}
				select {
				case watchEvent <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case watchErr <- err:
				default:
				}
			}
		}
	}()

	return watchEvent, watchErr, nil
}

func validate(defs []Definition) error {
	if len(defs) == 0 {
		return ErrNoDefinitions
	}

	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("%w: dataset name cannot be empty", ErrInvalidDefinition)
		}
		if strings.ContainsAny(d.Name, `/\`) || d.Name != filepath.Base(d.Name) {
			return fmt.Errorf("%w: dataset name %q is not a valid file name", ErrInvalidDefinition, d.Name)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("%w: duplicate dataset name %q", ErrInvalidDefinition, d.Name)
		}
		seen[d.Name] = struct{}{}

		switch d.Flow {
		case FlowRepos, FlowMembers:
		default:
			return fmt.Errorf("%w: dataset %q has unknown flow %q", ErrInvalidDefinition, d.Name, d.Flow)
		}

		if len(d.Fields) == 0 {
			return fmt.Errorf("%w: dataset %q has no fields", ErrInvalidDefinition, d.Name)
		}
	}
	return nil
}
