package nn

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"neurogrid/internal/model"
)

func sumNetwork(t *testing.T) Network {
	t.Helper()
	network, err := FromParts(2, 1, 0.1,
		[]model.Node{
			{ID: "i1", Kind: model.NodeInput, Activation: ActivationIdentity},
			{ID: "i2", Kind: model.NodeInput, Activation: ActivationIdentity},
			{ID: "o", Kind: model.NodeOutput, Activation: ActivationIdentity},
		},
		[]model.Edge{
			{ID: "e1", From: 0, To: 2, Weight: 1},
			{ID: "e2", From: 1, To: 2, Weight: 1},
		},
	)
	if err != nil {
		t.Fatalf("build network: %v", err)
	}
	return network
}

func TestComputeSumsInputs(t *testing.T) {
	network := sumNetwork(t)
	for _, tc := range [][2]float64{{1, 2}, {-3.5, 0.25}, {0, 0}} {
		out, err := network.Compute([]float64{tc[0], tc[1]})
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if len(out) != 1 {
			t.Fatalf("unexpected output length: %d", len(out))
		}
		if math.Abs(out[0]-(tc[0]+tc[1])) > 1e-9 {
			t.Fatalf("unexpected output: got=%f want=%f", out[0], tc[0]+tc[1])
		}
	}
}

func TestComputeRejectsWrongInputLength(t *testing.T) {
	network := sumNetwork(t)
	_, err := network.Compute([]float64{1, 2, 3})
	if !errors.Is(err, ErrInputSizeMismatch) {
		t.Fatalf("expected ErrInputSizeMismatch, got: %v", err)
	}
}

func TestComputeThroughHiddenNode(t *testing.T) {
	network, err := FromParts(1, 1, 0.1,
		[]model.Node{
			{ID: "i", Kind: model.NodeInput, Activation: ActivationIdentity},
			{ID: "h", Kind: model.NodeHidden, Activation: ActivationReLU, Bias: -1},
			{ID: "o", Kind: model.NodeOutput, Activation: ActivationIdentity, Bias: 0.5},
		},
		[]model.Edge{
			{ID: "e1", From: 0, To: 1, Weight: 2},
			{ID: "e2", From: 1, To: 2, Weight: 3},
		},
	)
	if err != nil {
		t.Fatalf("build network: %v", err)
	}

	out, err := network.Compute([]float64{2})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// relu(2*2 - 1) = 3; 3*3 + 0.5
	if math.Abs(out[0]-9.5) > 1e-9 {
		t.Fatalf("unexpected output: %f", out[0])
	}

	out, err = network.Compute([]float64{0})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(out[0]-0.5) > 1e-9 {
		t.Fatalf("expected no state carried between calls, got %f", out[0])
	}
}

func TestComputeBackwardEdgeReadsZero(t *testing.T) {
	network, err := FromParts(1, 1, 0.1,
		[]model.Node{
			{ID: "i", Kind: model.NodeInput, Activation: ActivationIdentity},
			{ID: "h1", Kind: model.NodeHidden, Activation: ActivationIdentity},
			{ID: "h2", Kind: model.NodeHidden, Activation: ActivationIdentity, Bias: 5},
			{ID: "o", Kind: model.NodeOutput, Activation: ActivationIdentity},
		},
		[]model.Edge{
			{ID: "e1", From: 0, To: 1, Weight: 1},
			{ID: "back", From: 2, To: 1, Weight: 1},
			{ID: "e2", From: 1, To: 3, Weight: 1},
		},
	)
	if err != nil {
		t.Fatalf("build network: %v", err)
	}
	out, err := network.Compute([]float64{1})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out[0] != 1 {
		t.Fatalf("expected backward edge to contribute zero, got %f", out[0])
	}
}

func TestNewBuildsFullyConnectedNetwork(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	network, err := New(3, 3, 0.1, rng, WithOutputBias(2))
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if network.NodeCount() != 6 || network.EdgeCount() != 9 {
		t.Fatalf("unexpected shape: nodes=%d edges=%d", network.NodeCount(), network.EdgeCount())
	}
	if err := network.Validate(); err != nil {
		t.Fatalf("expected valid network: %v", err)
	}
	for _, edge := range network.Edges() {
		if edge.Weight < -1 || edge.Weight > 1 {
			t.Fatalf("weight out of range: %f", edge.Weight)
		}
	}
	nodes := network.Nodes()
	if nodes[5].Bias != 1 || nodes[3].Bias != 0 || nodes[4].Bias != 0 {
		t.Fatalf("unexpected output biases: %+v", nodes[3:])
	}
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := New(0, 3, 0.1, rng); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got: %v", err)
	}
	if _, err := New(3, -1, 0.1, rng); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got: %v", err)
	}
	if _, err := New(3, 3, 1.5, rng); !errors.Is(err, ErrInvalidLearningRate) {
		t.Fatalf("expected ErrInvalidLearningRate, got: %v", err)
	}
	if _, err := New(3, 3, 0.1, rng, WithOutputBias(3)); err == nil {
		t.Fatal("expected output bias range error")
	}
}

func TestNewDeterministicForSeed(t *testing.T) {
	a, err := New(3, 3, 0.1, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("new a: %v", err)
	}
	b, err := New(3, 3, 0.1, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("new b: %v", err)
	}
	ra, rb := a.Record("x"), b.Record("x")
	ja, _ := json.Marshal(ra)
	jb, _ := json.Marshal(rb)
	if string(ja) != string(jb) {
		t.Fatalf("expected identical networks for identical seeds")
	}
}

func TestValidateReportsViolations(t *testing.T) {
	tests := []struct {
		name  string
		edges []model.Edge
	}{
		{name: "duplicate-id", edges: []model.Edge{{ID: "e", From: 0, To: 2}, {ID: "e", From: 1, To: 2}}},
		{name: "source-is-output", edges: []model.Edge{{ID: "e1", From: 0, To: 2}, {ID: "e2", From: 1, To: 2}, {ID: "e3", From: 2, To: 2}}},
		{name: "destination-is-input", edges: []model.Edge{{ID: "e1", From: 0, To: 2}, {ID: "e2", From: 1, To: 2}, {ID: "e3", From: 0, To: 1}}},
		{name: "negative-source", edges: []model.Edge{{ID: "e1", From: 0, To: 2}, {ID: "e2", From: 1, To: 2}, {ID: "e3", From: -1, To: 2}}},
		{name: "orphan-input", edges: []model.Edge{{ID: "e1", From: 0, To: 2}}},
		{name: "orphan-output", edges: nil},
	}
	nodes := []model.Node{
		{ID: "i1", Kind: model.NodeInput, Activation: ActivationIdentity},
		{ID: "i2", Kind: model.NodeInput, Activation: ActivationIdentity},
		{ID: "o", Kind: model.NodeOutput, Activation: ActivationIdentity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			network, err := FromParts(2, 1, 0.1, nodes, tc.edges)
			if err != nil {
				t.Fatalf("build network: %v", err)
			}
			err = network.Validate()
			if !errors.Is(err, ErrInvalidNetwork) {
				t.Fatalf("expected ErrInvalidNetwork, got: %v", err)
			}
			if network.Valid() {
				t.Fatal("expected Valid() to be false")
			}
		})
	}
}

func TestFromPartsRejectsBadLayout(t *testing.T) {
	_, err := FromParts(1, 1, 0.1,
		[]model.Node{
			{ID: "o", Kind: model.NodeOutput, Activation: ActivationIdentity},
			{ID: "i", Kind: model.NodeInput, Activation: ActivationIdentity},
		}, nil)
	if !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got: %v", err)
	}

	_, err = FromParts(1, 1, 0.1,
		[]model.Node{
			{ID: "i", Kind: model.NodeInput, Activation: ActivationIdentity},
			{ID: "o", Kind: model.NodeOutput, Activation: "unknown"},
		}, nil)
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	network := sumNetwork(t)
	nodes := network.Nodes()
	nodes[2].Bias = 100
	edges := network.Edges()
	edges[0].Weight = 100

	out, err := network.Compute([]float64{1, 1})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out[0] != 2 {
		t.Fatalf("external edits leaked into network: %f", out[0])
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	network, err := New(3, 3, 0.2, rng, WithOutputBias(0))
	if err != nil {
		t.Fatalf("new network: %v", err)
	}

	payload, err := json.Marshal(network.Record("net-1"))
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	var record model.NetworkRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	restored, err := FromRecord(record)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if restored.LearningRate() != 0.2 || restored.InputSize() != 3 || restored.OutputSize() != 3 {
		t.Fatalf("unexpected restored parameters")
	}

	for i := 0; i < 20; i++ {
		inputs := []float64{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
		want, err := network.Compute(inputs)
		if err != nil {
			t.Fatalf("compute original: %v", err)
		}
		got, err := restored.Compute(inputs)
		if err != nil {
			t.Fatalf("compute restored: %v", err)
		}
		for j := range want {
			if want[j] != got[j] {
				t.Fatalf("output %d mismatch: got=%f want=%f", j, got[j], want[j])
			}
		}
	}
}
