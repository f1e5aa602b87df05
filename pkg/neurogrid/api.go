package neurogrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"neurogrid/internal/agent"
	"neurogrid/internal/evo"
	"neurogrid/internal/model"
	"neurogrid/internal/nn"
	"neurogrid/internal/sim"
	"neurogrid/internal/stats"
	"neurogrid/internal/storage"
)

const (
	defaultArtifactsDir   = "runs"
	defaultDBPath         = "neurogrid.db"
	defaultTicks          = 1000
	defaultSampleEvery    = 100
	defaultReplayTicks    = 500
	defaultReplayInterval = 6
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	Logger       *slog.Logger
}

type Client struct {
	store        storage.Store
	artifactsDir string
	logger       *slog.Logger
}

type RunRequest struct {
	Seed  int64
	Ticks int
	// SampleEvery freezes the most evolved agent every SampleEvery ticks and
	// on the last tick. Negative disables sampling.
	SampleEvery int
	// Config defaults to sim.DefaultConfig when its grid is unset.
	Config sim.Config
	// Observe, if set, sees every state after it has been recorded.
	Observe sim.Observer
}

type RunSummary struct {
	RunID           string
	ArtifactsDir    string
	Ticks           int
	FinalPopulation int
	PeakLineage     int
	Samples         int
	Metrics         stats.MetricsSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID           string
	CreatedAtUTC    string
	Seed            int64
	Ticks           int
	BoundaryPolicy  string
	FinalPopulation int
	PeakLineage     int
}

type MetricsRequest struct {
	RunID  string
	Latest bool
	// Limit keeps only the last Limit ticks; zero keeps all.
	Limit int
}

type SamplesRequest struct {
	RunID  string
	Latest bool
}

type SampleItem struct {
	SampleID   string
	Tick       int
	AgentID    string
	Lineage    int
	Moves      int
	Complexity int
}

type ReplayRequest struct {
	// SampleID selects a sample directly. Otherwise the last sample of RunID
	// (or of the latest run) is replayed.
	SampleID string
	RunID    string
	Latest   bool
	Ticks    int
	// Interval is the number of ticks between hazard walls.
	Interval int
	Observe  func(sim.ReplayState) error
}

type ReplaySummary struct {
	SampleID  string
	RunID     string
	Ticks     int
	Alive     bool
	Crossings int
	Moves     int
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	return NewWithStore(store, opts.ArtifactsDir, opts.Logger), nil
}

// NewWithStore wraps an existing store. The store still needs Init.
func NewWithStore(store storage.Store, artifactsDir string, logger *slog.Logger) *Client {
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{store: store, artifactsDir: artifactsDir, logger: logger}
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Ticks <= 0 {
		req.Ticks = defaultTicks
	}
	if req.SampleEvery == 0 {
		req.SampleEvery = defaultSampleEvery
	}
	cfg := req.Config
	if cfg.GridWidth == 0 && cfg.GridHeight == 0 {
		cfg = sim.DefaultConfig()
	}

	s, err := sim.New(cfg, rand.New(rand.NewSource(req.Seed)), c.logger)
	if err != nil {
		return RunSummary{}, err
	}
	cfg = s.Config()
	state, err := s.Init()
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("run-%d-%d", req.Seed, now.UnixNano())
	logger := c.logger.With("run_id", runID)
	logger.Info("run started", "seed", req.Seed, "ticks", req.Ticks, "min_agents", cfg.MinAgents, "max_agents", cfg.MaxAgents)

	metrics := make([]model.TickMetrics, 0, req.Ticks)
	samples := 0
	observe := func(state sim.State) error {
		if last, ok := state.History.Last(); ok {
			metrics = append(metrics, last)
		}
		if req.SampleEvery > 0 && (state.Tick%req.SampleEvery == 0 || state.Tick == req.Ticks) {
			saved, err := c.saveSample(ctx, runID, state)
			if err != nil {
				return err
			}
			if saved {
				samples++
			}
		}
		if req.Observe != nil {
			return req.Observe(state)
		}
		return nil
	}

	final, err := s.Run(ctx, state, req.Ticks, observe)
	if err != nil {
		logger.Error("run stopped", "tick", final.Tick, "error", err)
		return RunSummary{}, err
	}

	if err := c.store.SaveRun(ctx, model.RunRecord{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
		Seed:            req.Seed,
		Ticks:           final.Tick,
		GridWidth:       cfg.GridWidth,
		GridHeight:      cfg.GridHeight,
		MinAgents:       cfg.MinAgents,
		MaxAgents:       cfg.MaxAgents,
		MaxDifficulty:   cfg.MaxDifficulty,
		LearningRate:    cfg.LearningRate,
		BoundaryPolicy:  cfg.BoundaryPolicy.String(),
		FinalPopulation: final.Population(),
		PeakLineage:     final.PeakLineage,
	}); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveMetrics(ctx, runID, metrics); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config:  runConfig(runID, now, req, cfg),
		Metrics: metrics,
	})
	if err != nil {
		return RunSummary{}, err
	}
	logger.Info("run finished", "final_population", final.Population(), "peak_lineage", final.PeakLineage, "samples", samples)

	return RunSummary{
		RunID:           runID,
		ArtifactsDir:    filepath.Clean(runDir),
		Ticks:           final.Tick,
		FinalPopulation: final.Population(),
		PeakLineage:     final.PeakLineage,
		Samples:         samples,
		Metrics:         stats.SummarizeMetrics(metrics),
	}, nil
}

// saveSample freezes the most evolved agent of state together with its
// network.
func (c *Client) saveSample(ctx context.Context, runID string, state sim.State) (bool, error) {
	best, ok := state.MostEvolved()
	if !ok {
		return false, nil
	}
	sampleID := fmt.Sprintf("%s-t%06d", runID, state.Tick)
	network := best.Network.Record(sampleID + "-net")
	if err := c.store.SaveNetwork(ctx, network); err != nil {
		return false, err
	}
	snapshot := best.Snapshot()
	snapshot.NetworkID = network.ID
	if err := c.store.SaveSample(ctx, model.SampleRecord{
		VersionedRecord: storage.Versioned(),
		ID:              sampleID,
		RunID:           runID,
		Tick:            state.Tick,
		Agent:           snapshot,
		Network:         network,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func runConfig(runID string, createdAt time.Time, req RunRequest, cfg sim.Config) stats.RunConfig {
	policy := make(map[string]float64, len(cfg.MutationPolicy))
	for _, op := range cfg.MutationPolicy {
		policy[op.Kind.String()] += op.Weight
	}
	sampleEvery := req.SampleEvery
	if sampleEvery < 0 {
		sampleEvery = 0
	}
	return stats.RunConfig{
		RunID:               runID,
		CreatedAtUTC:        createdAt.Format(time.RFC3339Nano),
		Seed:                req.Seed,
		Ticks:               req.Ticks,
		GridWidth:           cfg.GridWidth,
		GridHeight:          cfg.GridHeight,
		CellSize:            cfg.CellSize,
		MinAgents:           cfg.MinAgents,
		MaxAgents:           cfg.MaxAgents,
		MaxDifficulty:       cfg.MaxDifficulty,
		LearningRate:        cfg.LearningRate,
		DifficultyWindow:    cfg.DifficultyWindow,
		HistoryLimit:        cfg.HistoryLimit,
		Direction:           cfg.Direction.String(),
		BoundaryPolicy:      cfg.BoundaryPolicy.String(),
		MutationPolicy:      policy,
		MaxMutationAttempts: cfg.MaxMutationAttempts,
		SampleEvery:         sampleEvery,
	}
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, min(len(runs), req.Limit))
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		run := runs[i]
		out = append(out, RunItem{
			RunID:           run.ID,
			CreatedAtUTC:    run.CreatedAtUTC,
			Seed:            run.Seed,
			Ticks:           run.Ticks,
			BoundaryPolicy:  run.BoundaryPolicy,
			FinalPopulation: run.FinalPopulation,
			PeakLineage:     run.PeakLineage,
		})
	}
	return out, nil
}

func (c *Client) Metrics(ctx context.Context, req MetricsRequest) ([]model.TickMetrics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	metrics, ok, err := c.store.GetMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("metrics not found for run %s", runID)
	}
	if req.Limit > 0 && len(metrics) > req.Limit {
		metrics = metrics[len(metrics)-req.Limit:]
	}
	return metrics, nil
}

func (c *Client) Samples(ctx context.Context, req SamplesRequest) ([]SampleItem, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	samples, err := c.store.ListSamples(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]SampleItem, 0, len(samples))
	for _, sample := range samples {
		out = append(out, SampleItem{
			SampleID:   sample.ID,
			Tick:       sample.Tick,
			AgentID:    sample.Agent.ID,
			Lineage:    sample.Agent.Lineage,
			Moves:      sample.Agent.Moves,
			Complexity: len(sample.Network.Nodes) + len(sample.Network.Edges),
		})
	}
	return out, nil
}

// Replay steps a frozen sample against scrolling hazard walls until it dies
// or the tick budget runs out.
func (c *Client) Replay(ctx context.Context, req ReplayRequest) (ReplaySummary, error) {
	if req.Ticks <= 0 {
		req.Ticks = defaultReplayTicks
	}
	if req.Interval <= 0 {
		req.Interval = defaultReplayInterval
	}
	sample, err := c.resolveSample(ctx, req)
	if err != nil {
		return ReplaySummary{}, err
	}
	frozen, err := SampleAgent(sample)
	if err != nil {
		return ReplaySummary{}, err
	}

	defaults := sim.DefaultConfig()
	width, height, cellSize := defaults.GridWidth, defaults.GridHeight, defaults.CellSize
	if run, ok, err := c.store.GetRun(ctx, sample.RunID); err != nil {
		return ReplaySummary{}, err
	} else if ok {
		width, height = run.GridWidth, run.GridHeight
	}

	replay, err := sim.NewReplay(sim.ScrollingPattern(frozen.Direction, req.Interval), nil)
	if err != nil {
		return ReplaySummary{}, err
	}
	state, err := replay.Start(frozen, width, height, cellSize)
	if err != nil {
		return ReplaySummary{}, err
	}
	for state.Alive && state.Tick < req.Ticks {
		if err := ctx.Err(); err != nil {
			return ReplaySummary{}, err
		}
		if state, err = replay.Step(state); err != nil {
			return ReplaySummary{}, err
		}
		if req.Observe != nil {
			if err := req.Observe(state); err != nil {
				return ReplaySummary{}, err
			}
		}
	}
	c.logger.Info("replay finished", "sample_id", sample.ID, "ticks", state.Tick, "alive", state.Alive, "crossings", state.Crossings)

	return ReplaySummary{
		SampleID:  sample.ID,
		RunID:     sample.RunID,
		Ticks:     state.Tick,
		Alive:     state.Alive,
		Crossings: state.Crossings,
		Moves:     state.Agent.Moves,
	}, nil
}

// SampleAgent rebuilds the frozen agent stored in sample.
func SampleAgent(sample model.SampleRecord) (agent.Agent, error) {
	network, err := nn.FromRecord(sample.Network)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("sample %s: %w", sample.ID, err)
	}
	return agent.FromSample(sample.Agent, network)
}

func (c *Client) resolveSample(ctx context.Context, req ReplayRequest) (model.SampleRecord, error) {
	if req.SampleID != "" {
		sample, ok, err := c.store.GetSample(ctx, req.SampleID)
		if err != nil {
			return model.SampleRecord{}, err
		}
		if !ok {
			return model.SampleRecord{}, fmt.Errorf("sample not found: %s", req.SampleID)
		}
		return sample, nil
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return model.SampleRecord{}, err
	}
	samples, err := c.store.ListSamples(ctx, runID)
	if err != nil {
		return model.SampleRecord{}, err
	}
	if len(samples) == 0 {
		return model.SampleRecord{}, fmt.Errorf("run %s has no samples", runID)
	}
	return samples[len(samples)-1], nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[len(runs)-1].ID, nil
}

// MutationPolicy parses operator weights keyed by operator name. Operators
// not named keep no weight; an empty map yields evo.DefaultPolicy.
func MutationPolicy(weights map[string]float64) ([]evo.WeightedOperator, error) {
	if len(weights) == 0 {
		return evo.DefaultPolicy(), nil
	}
	policy := make([]evo.WeightedOperator, 0, len(weights))
	for _, kind := range evo.Kinds() {
		weight, ok := weights[kind.String()]
		if !ok {
			continue
		}
		if weight < 0 {
			return nil, fmt.Errorf("mutation weight for %s must be >= 0", kind)
		}
		policy = append(policy, evo.WeightedOperator{Kind: kind, Weight: weight})
	}
	for name := range weights {
		if _, err := evo.ParseOperatorKind(name); err != nil {
			return nil, err
		}
	}
	return policy, nil
}
