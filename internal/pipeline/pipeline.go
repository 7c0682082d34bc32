// Package pipeline orchestrates a single data refresh run:
// fetch the datasets, write the artifacts, publish the change set.
// The stages run strictly in sequence and any failure aborts the run
// before the next stage, so partial datasets are never committed.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ubuntu/decorate"
	"github.com/zuehlke/orgdata-sync/internal/datasets"
	"github.com/zuehlke/orgdata-sync/internal/github"
	"github.com/zuehlke/orgdata-sync/internal/publisher"
)

// Origin identifies what triggered a pipeline run.
type Origin string

const (
	// OriginManual marks runs requested on demand.
	OriginManual Origin = "manual"
	// OriginScheduled marks runs fired by the scheduler.
	OriginScheduled Origin = "scheduled"
)

// TriggerEvent identifies a single pipeline invocation.
// Both trigger origins map to the same invocation contract.
type TriggerEvent struct {
	ID          uuid.UUID
	Origin      Origin
	ScheduledAt time.Time // intended fire time, zero for manual runs
	FiredAt     time.Time
}

// NewTrigger returns a TriggerEvent for a run starting now.
func NewTrigger(origin Origin, scheduledAt time.Time) TriggerEvent {
	return TriggerEvent{
		ID:          uuid.New(),
		Origin:      origin,
		ScheduledAt: scheduledAt,
		FiredAt:     time.Now().UTC(),
	}
}

// Writer is the slice of the data writer the pipeline needs.
type Writer interface {
	Write(data map[string]github.Dataset) error
}

// Pipeline wires the fetcher, writer, and publisher into one run entry point.
type Pipeline struct {
	fetcher   github.Fetcher
	writer    Writer
	publisher publisher.Publisher

	definitions func() []datasets.Definition

	log *slog.Logger
}

// New returns a new Pipeline.
// publisher may be nil for collect-only runs; definitions is called at the start
// of every run so reloaded dataset definitions are picked up.
func New(l *slog.Logger, f github.Fetcher, w Writer, p publisher.Publisher, definitions func() []datasets.Definition) (*Pipeline, error) {
	if f == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if w == nil {
		return nil, errors.New("writer cannot be nil")
	}
	if definitions == nil {
		return nil, errors.New("definitions provider cannot be nil")
	}

	return &Pipeline{
		fetcher:     f,
		writer:      w,
		publisher:   p,
		definitions: definitions,
		log:         l,
	}, nil
}

// Run executes one full pipeline invocation.
// If dryRun is true, the datasets are fetched but nothing is written or published.
func (p *Pipeline) Run(ctx context.Context, trigger TriggerEvent, dryRun bool) (err error) {
	defer decorate.OnError(&err, "pipeline run %s failed", trigger.ID)

	l := p.log.With("run", trigger.ID, "origin", trigger.Origin)
	l.Info("Pipeline run started", "firedAt", trigger.FiredAt)

	defs := p.definitions()
	data, err := p.fetcher.Fetch(ctx, defs)
	if err != nil {
		return err
	}

	if dryRun {
		for category, ds := range data {
			l.Info("Dry run, not writing dataset", "dataset", category, "records", len(ds))
		}
		return nil
	}

	if err := p.writer.Write(data); err != nil {
		return err
	}

	if p.publisher == nil {
		l.Info("Pipeline run finished without publishing")
		return nil
	}

	hash, err := p.publisher.Publish(ctx, false)
	if err != nil {
		return err
	}
	l.Info("Pipeline run finished", "commit", hash)
	return nil
}
