package storage

import (
	"context"
	"sort"
	"sync"

	"neurogrid/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	networks    map[string]model.NetworkRecord
	metrics     map[string][]model.TickMetrics
	samples     map[string]model.SampleRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.networks = make(map[string]model.NetworkRecord)
	s.metrics = make(map[string][]model.TickMetrics)
	s.samples = make(map[string]model.SampleRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC < runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveNetwork(_ context.Context, network model.NetworkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.networks[network.ID] = cloneNetwork(network)
	return nil
}

func (s *MemoryStore) GetNetwork(_ context.Context, id string) (model.NetworkRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	network, ok := s.networks[id]
	if !ok {
		return model.NetworkRecord{}, false, nil
	}
	return cloneNetwork(network), true, nil
}

func (s *MemoryStore) SaveMetrics(_ context.Context, runID string, metrics []model.TickMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.metrics[runID] = append([]model.TickMetrics(nil), metrics...)
	return nil
}

func (s *MemoryStore) GetMetrics(_ context.Context, runID string) ([]model.TickMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics, ok := s.metrics[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.TickMetrics(nil), metrics...), true, nil
}

func (s *MemoryStore) SaveSample(_ context.Context, sample model.SampleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	sample.Network = cloneNetwork(sample.Network)
	s.samples[sample.ID] = sample
	return nil
}

func (s *MemoryStore) GetSample(_ context.Context, id string) (model.SampleRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sample, ok := s.samples[id]
	if !ok {
		return model.SampleRecord{}, false, nil
	}
	sample.Network = cloneNetwork(sample.Network)
	return sample, true, nil
}

func (s *MemoryStore) ListSamples(_ context.Context, runID string) ([]model.SampleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var samples []model.SampleRecord
	for _, sample := range s.samples {
		if sample.RunID != runID {
			continue
		}
		sample.Network = cloneNetwork(sample.Network)
		samples = append(samples, sample)
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Tick != samples[j].Tick {
			return samples[i].Tick < samples[j].Tick
		}
		return samples[i].ID < samples[j].ID
	})
	return samples, nil
}

func cloneNetwork(network model.NetworkRecord) model.NetworkRecord {
	network.Nodes = append([]model.Node(nil), network.Nodes...)
	network.Edges = append([]model.Edge(nil), network.Edges...)
	return network
}
