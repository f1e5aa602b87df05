package evo

import (
	"fmt"
	"math/rand"
	"slices"

	"neurogrid/internal/ids"
	"neurogrid/internal/model"
	"neurogrid/internal/nn"
)

// addNode splices a hidden node into a random edge. The node is inserted just
// before the output block; the chosen edge is redirected into it and a new
// unit-weight edge carries its value on to the old destination.
func addNode(network nn.Network, rng *rand.Rand) (nn.Network, error) {
	edges := network.Edges()
	if len(edges) == 0 {
		return nn.Network{}, fmt.Errorf("%w: no edge to intermediate", ErrNotApplicable)
	}
	nodes := network.Nodes()
	insertAt := len(nodes) - network.OutputSize()

	// Reindex before the split so the chosen edge already uses post-insertion indices.
	for i := range edges {
		if edges[i].From >= insertAt {
			edges[i].From++
		}
		if edges[i].To >= insertAt {
			edges[i].To++
		}
	}

	hidden := model.Node{
		ID:         ids.New(rng),
		Kind:       model.NodeHidden,
		Bias:       1,
		Activation: randomActivation(rng),
	}
	nodes = slices.Insert(nodes, insertAt, hidden)

	pick := rng.Intn(len(edges))
	oldTo := edges[pick].To
	edges[pick].To = insertAt
	edges = append(edges, model.Edge{
		ID:     ids.New(rng),
		From:   insertAt,
		To:     oldTo,
		Weight: 1,
	})
	return rebuild(network, nodes, edges)
}

// addEdge links a random input or hidden node to a random hidden or output
// node. Parallel edges are allowed.
func addEdge(network nn.Network, rng *rand.Rand) (nn.Network, error) {
	nodeCount := network.NodeCount()
	sources := nodeCount - network.OutputSize()
	targets := nodeCount - network.InputSize()
	if sources <= 0 || targets <= 0 {
		return nn.Network{}, fmt.Errorf("%w: no endpoints", ErrNotApplicable)
	}
	from := rng.Intn(sources)
	to := network.InputSize() + rng.Intn(targets)

	edges := append(network.Edges(), model.Edge{
		ID:     ids.New(rng),
		From:   from,
		To:     to,
		Weight: 1,
	})
	return rebuild(network, network.Nodes(), edges)
}

// removeNode drops a random hidden node and bridges every (source, destination)
// pair that passed through it with a unit-weight edge.
func removeNode(network nn.Network, rng *rand.Rand) (nn.Network, error) {
	hiddenCount := network.HiddenCount()
	if hiddenCount <= 0 {
		return nn.Network{}, fmt.Errorf("%w: no hidden node", ErrNotApplicable)
	}
	target := network.InputSize() + rng.Intn(hiddenCount)

	var sources, destinations []int
	kept := make([]model.Edge, 0, network.EdgeCount())
	for _, edge := range network.Edges() {
		if edge.To == target && edge.From != target && !slices.Contains(sources, edge.From) {
			sources = append(sources, edge.From)
		}
		if edge.From == target && edge.To != target && !slices.Contains(destinations, edge.To) {
			destinations = append(destinations, edge.To)
		}
		if edge.From == target || edge.To == target {
			continue
		}
		kept = append(kept, edge)
	}
	for _, from := range sources {
		for _, to := range destinations {
			kept = append(kept, model.Edge{ID: ids.New(rng), From: from, To: to, Weight: 1})
		}
	}
	for i := range kept {
		if kept[i].From > target {
			kept[i].From--
		}
		if kept[i].To > target {
			kept[i].To--
		}
	}

	nodes := slices.Delete(network.Nodes(), target, target+1)
	mutated, err := rebuild(network, nodes, kept)
	if err != nil {
		return nn.Network{}, err
	}
	// A hidden node whose only outlet was a self loop leaves nothing to bridge.
	if err := mutated.Validate(); err != nil {
		return nn.Network{}, fmt.Errorf("%w: removal would orphan a node: %v", ErrNotApplicable, err)
	}
	return mutated, nil
}

// removeEdge deletes the first edge, in shuffled order, whose source keeps
// another outgoing edge and whose destination keeps another incoming edge.
func removeEdge(network nn.Network, rng *rand.Rand) (nn.Network, error) {
	edges := network.Edges()
	if len(edges) == 0 {
		return nn.Network{}, fmt.Errorf("%w: no edge", ErrNotApplicable)
	}
	outgoing := make([]int, network.NodeCount())
	incoming := make([]int, network.NodeCount())
	for _, edge := range edges {
		if edge.From >= 0 && edge.From < len(outgoing) {
			outgoing[edge.From]++
		}
		if edge.To >= 0 && edge.To < len(incoming) {
			incoming[edge.To]++
		}
	}

	for _, idx := range rng.Perm(len(edges)) {
		edge := edges[idx]
		if edge.From < 0 || edge.From >= len(outgoing) || edge.To < 0 || edge.To >= len(incoming) {
			continue
		}
		if outgoing[edge.From] < 2 || incoming[edge.To] < 2 {
			continue
		}
		return rebuild(network, network.Nodes(), slices.Delete(edges, idx, idx+1))
	}
	return nn.Network{}, fmt.Errorf("%w: every edge is load-bearing", ErrNotApplicable)
}

func mutateEdgeWeight(network nn.Network, rng *rand.Rand) (nn.Network, error) {
	edges := network.Edges()
	if len(edges) == 0 {
		return nn.Network{}, fmt.Errorf("%w: no edge", ErrNotApplicable)
	}
	idx := rng.Intn(len(edges))
	edges[idx].Weight = perturb(edges[idx].Weight, network.LearningRate(), rng)
	return rebuild(network, network.Nodes(), edges)
}

func mutateNodeBias(network nn.Network, rng *rand.Rand) (nn.Network, error) {
	nodes := network.Nodes()
	idx, ok := randomNonInput(network, rng)
	if !ok {
		return nn.Network{}, fmt.Errorf("%w: no non-input node", ErrNotApplicable)
	}
	nodes[idx].Bias = perturb(nodes[idx].Bias, network.LearningRate(), rng)
	return rebuild(network, nodes, network.Edges())
}

func mutateNodeSquash(network nn.Network, rng *rand.Rand) (nn.Network, error) {
	nodes := network.Nodes()
	idx, ok := randomNonInput(network, rng)
	if !ok {
		return nn.Network{}, fmt.Errorf("%w: no non-input node", ErrNotApplicable)
	}
	nodes[idx].Activation = randomActivation(rng)
	return rebuild(network, nodes, network.Edges())
}

// perturb moves value by a uniform step in [-2, 2] scaled by the value itself
// (or 1 when the value is exactly zero) and blended by the learning rate.
func perturb(value, learningRate float64, rng *rand.Rand) float64 {
	scale := value
	if value == 0 {
		scale = 1
	}
	return value*(1-learningRate) + scale*(rng.Float64()*4-2)*learningRate
}

func randomNonInput(network nn.Network, rng *rand.Rand) (int, bool) {
	count := network.NodeCount() - network.InputSize()
	if count <= 0 {
		return 0, false
	}
	return network.InputSize() + rng.Intn(count), true
}

func randomActivation(rng *rand.Rand) string {
	return nn.MutableActivations[rng.Intn(len(nn.MutableActivations))]
}

func rebuild(parent nn.Network, nodes []model.Node, edges []model.Edge) (nn.Network, error) {
	return nn.FromParts(parent.InputSize(), parent.OutputSize(), parent.LearningRate(), nodes, edges)
}
