package storage

import (
	"context"
	"testing"

	"neurogrid/internal/model"
)

func testNetwork(id string) model.NetworkRecord {
	return model.NetworkRecord{
		VersionedRecord: Versioned(),
		ID:              id,
		InputSize:       1,
		OutputSize:      1,
		LearningRate:    0.1,
		Nodes: []model.Node{
			{ID: id + "-in", Kind: model.NodeInput, Activation: "identity"},
			{ID: id + "-out", Kind: model.NodeOutput, Activation: "sigmoid", Bias: 1},
		},
		Edges: []model.Edge{{ID: id + "-e", From: 0, To: 1, Weight: 0.25}},
	}
}

// exerciseStore runs the same round trips against every backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	runs := []model.RunRecord{
		{VersionedRecord: Versioned(), ID: "run-b", CreatedAtUTC: "2026-01-02T00:00:00Z", Seed: 2, Ticks: 50},
		{VersionedRecord: Versioned(), ID: "run-a", CreatedAtUTC: "2026-01-01T00:00:00Z", Seed: 1, Ticks: 100, PeakLineage: 7},
	}
	for _, run := range runs {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}
	run, ok, err := store.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || run.PeakLineage != 7 || run.Seed != 1 {
		t.Fatalf("unexpected run: ok=%t run=%+v", ok, run)
	}
	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}
	listed, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "run-a" || listed[1].ID != "run-b" {
		t.Fatalf("expected runs oldest first, got %+v", listed)
	}

	network := testNetwork("n1")
	if err := store.SaveNetwork(ctx, network); err != nil {
		t.Fatalf("save network: %v", err)
	}
	network.Edges[0].Weight = 99
	loaded, ok, err := store.GetNetwork(ctx, "n1")
	if err != nil || !ok {
		t.Fatalf("get network: ok=%t err=%v", ok, err)
	}
	if len(loaded.Nodes) != 2 || loaded.Edges[0].Weight != 0.25 {
		t.Fatalf("unexpected network: %+v", loaded)
	}

	metrics := []model.TickMetrics{{Tick: 1, Population: 10}, {Tick: 2, Population: 12, Difficulty: 0.5}}
	if err := store.SaveMetrics(ctx, "run-a", metrics); err != nil {
		t.Fatalf("save metrics: %v", err)
	}
	gotMetrics, ok, err := store.GetMetrics(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get metrics: ok=%t err=%v", ok, err)
	}
	if len(gotMetrics) != 2 || gotMetrics[1].Difficulty != 0.5 {
		t.Fatalf("unexpected metrics: %+v", gotMetrics)
	}
	if _, ok, err := store.GetMetrics(ctx, "run-b"); err != nil || ok {
		t.Fatalf("expected no metrics for run-b, ok=%t err=%v", ok, err)
	}

	for _, sample := range []model.SampleRecord{
		{VersionedRecord: Versioned(), ID: "s2", RunID: "run-a", Tick: 20, Agent: model.AgentRecord{ID: "a2", Lineage: 3}, Network: testNetwork("n2")},
		{VersionedRecord: Versioned(), ID: "s1", RunID: "run-a", Tick: 10, Agent: model.AgentRecord{ID: "a1", Lineage: 1}, Network: testNetwork("n3")},
		{VersionedRecord: Versioned(), ID: "s3", RunID: "run-b", Tick: 5, Network: testNetwork("n4")},
	} {
		if err := store.SaveSample(ctx, sample); err != nil {
			t.Fatalf("save sample %s: %v", sample.ID, err)
		}
	}
	samples, err := store.ListSamples(ctx, "run-a")
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(samples) != 2 || samples[0].ID != "s1" || samples[1].ID != "s2" {
		t.Fatalf("expected samples ordered by tick, got %+v", samples)
	}
	sample, ok, err := store.GetSample(ctx, "s2")
	if err != nil || !ok {
		t.Fatalf("get sample: ok=%t err=%v", ok, err)
	}
	if sample.Agent.Lineage != 3 || sample.Network.ID != "n2" {
		t.Fatalf("unexpected sample: %+v", sample)
	}
}
