package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"neurogrid/internal/nn"
)

// ErrNotApplicable reports that an operator has nothing to act on for the given
// network. It is an expected outcome of random operator selection.
var ErrNotApplicable = errors.New("mutation not applicable")

type OperatorKind int

const (
	AddNode OperatorKind = iota
	AddEdge
	RemoveNode
	RemoveEdge
	MutateEdgeWeight
	MutateNodeBias
	MutateNodeSquash
)

var operatorNames = [...]string{
	AddNode:          "add_node",
	AddEdge:          "add_edge",
	RemoveNode:       "remove_node",
	RemoveEdge:       "remove_edge",
	MutateEdgeWeight: "mutate_edge_weight",
	MutateNodeBias:   "mutate_node_bias",
	MutateNodeSquash: "mutate_node_squash",
}

func (k OperatorKind) String() string {
	if k < 0 || int(k) >= len(operatorNames) {
		return fmt.Sprintf("operator(%d)", int(k))
	}
	return operatorNames[k]
}

func ParseOperatorKind(name string) (OperatorKind, error) {
	for i, candidate := range operatorNames {
		if candidate == name {
			return OperatorKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mutation operator: %s", name)
}

// Kinds lists every operator kind in declaration order.
func Kinds() []OperatorKind {
	kinds := make([]OperatorKind, len(operatorNames))
	for i := range operatorNames {
		kinds[i] = OperatorKind(i)
	}
	return kinds
}

type WeightedOperator struct {
	Kind   OperatorKind
	Weight float64
}

// DefaultPolicy favours parametric tweaks over structural edits.
func DefaultPolicy() []WeightedOperator {
	return []WeightedOperator{
		{Kind: AddNode, Weight: 1},
		{Kind: AddEdge, Weight: 1},
		{Kind: RemoveNode, Weight: 2},
		{Kind: RemoveEdge, Weight: 2},
		{Kind: MutateEdgeWeight, Weight: 10},
		{Kind: MutateNodeBias, Weight: 10},
		{Kind: MutateNodeSquash, Weight: 4},
	}
}

// Apply runs a single operator against network. The input network is never
// modified.
func Apply(kind OperatorKind, network nn.Network, rng *rand.Rand) (nn.Network, error) {
	if rng == nil {
		return nn.Network{}, errors.New("random source is required")
	}
	switch kind {
	case AddNode:
		return addNode(network, rng)
	case AddEdge:
		return addEdge(network, rng)
	case RemoveNode:
		return removeNode(network, rng)
	case RemoveEdge:
		return removeEdge(network, rng)
	case MutateEdgeWeight:
		return mutateEdgeWeight(network, rng)
	case MutateNodeBias:
		return mutateNodeBias(network, rng)
	case MutateNodeSquash:
		return mutateNodeSquash(network, rng)
	default:
		return nn.Network{}, fmt.Errorf("unsupported mutation operator: %s", kind)
	}
}
