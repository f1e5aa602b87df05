package storage

import (
	"context"
	"errors"

	"neurogrid/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

// Store persists runs, networks, tick metrics and frozen agent samples.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs oldest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveNetwork(ctx context.Context, network model.NetworkRecord) error
	GetNetwork(ctx context.Context, id string) (model.NetworkRecord, bool, error)
	SaveMetrics(ctx context.Context, runID string, metrics []model.TickMetrics) error
	GetMetrics(ctx context.Context, runID string) ([]model.TickMetrics, bool, error)
	SaveSample(ctx context.Context, sample model.SampleRecord) error
	GetSample(ctx context.Context, id string) (model.SampleRecord, bool, error)
	// ListSamples returns the samples of a run ordered by tick.
	ListSamples(ctx context.Context, runID string) ([]model.SampleRecord, error)
}
