package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"neurogrid/internal/ids"
	"neurogrid/internal/model"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrInvalidSize         = errors.New("input and output sizes must be > 0")
	ErrInvalidLearningRate = errors.New("learning rate must be in (0, 1)")
	ErrInvalidLayout       = errors.New("node layout does not match input/output sizes")
	ErrInputSizeMismatch   = errors.New("input size mismatch")
	ErrInvalidNetwork      = errors.New("invalid network")
)

// Network is a feed-forward computation graph. Nodes are ordered inputs first,
// hidden next and outputs last; that order is also the activation order.
// Networks are values: every accessor hands out copies and every edit builds a
// new Network.
type Network struct {
	inputSize    int
	outputSize   int
	learningRate float64
	nodes        []model.Node
	edges        []model.Edge
}

type Option func(*buildOptions)

type buildOptions struct {
	outputBiasIndex int
}

// WithOutputBias sets the bias of the output node at index to 1. It is used to
// give a fresh network a default preferred action.
func WithOutputBias(index int) Option {
	return func(o *buildOptions) {
		o.outputBiasIndex = index
	}
}

// New builds a fully connected input-to-output network with weights sampled
// uniformly from [-1, 1].
func New(inputSize, outputSize int, learningRate float64, rng *rand.Rand, opts ...Option) (Network, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return Network{}, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInvalidSize, inputSize, outputSize)
	}
	if learningRate <= 0 || learningRate >= 1 {
		return Network{}, fmt.Errorf("%w: %f", ErrInvalidLearningRate, learningRate)
	}
	if rng == nil {
		return Network{}, errors.New("random source is required")
	}
	options := buildOptions{outputBiasIndex: -1}
	for _, opt := range opts {
		opt(&options)
	}
	if options.outputBiasIndex >= outputSize {
		return Network{}, fmt.Errorf("output bias index out of range: %d", options.outputBiasIndex)
	}

	nodes := make([]model.Node, 0, inputSize+outputSize)
	for i := 0; i < inputSize; i++ {
		nodes = append(nodes, model.Node{ID: ids.New(rng), Kind: model.NodeInput, Activation: ActivationIdentity})
	}
	for i := 0; i < outputSize; i++ {
		node := model.Node{ID: ids.New(rng), Kind: model.NodeOutput, Activation: ActivationIdentity}
		if i == options.outputBiasIndex {
			node.Bias = 1
		}
		nodes = append(nodes, node)
	}

	edges := make([]model.Edge, 0, inputSize*outputSize)
	for from := 0; from < inputSize; from++ {
		for out := 0; out < outputSize; out++ {
			edges = append(edges, model.Edge{
				ID:     ids.New(rng),
				From:   from,
				To:     inputSize + out,
				Weight: rng.Float64()*2 - 1,
			})
		}
	}

	return Network{
		inputSize:    inputSize,
		outputSize:   outputSize,
		learningRate: learningRate,
		nodes:        nodes,
		edges:        edges,
	}, nil
}

// FromParts builds a network from explicit node and edge lists. The lists are
// copied. Node layout and activation names are checked; edge invariants are
// left to Validate.
func FromParts(inputSize, outputSize int, learningRate float64, nodes []model.Node, edges []model.Edge) (Network, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return Network{}, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInvalidSize, inputSize, outputSize)
	}
	if learningRate <= 0 || learningRate >= 1 {
		return Network{}, fmt.Errorf("%w: %f", ErrInvalidLearningRate, learningRate)
	}
	if len(nodes) < inputSize+outputSize {
		return Network{}, fmt.Errorf("%w: nodes=%d inputs=%d outputs=%d", ErrInvalidLayout, len(nodes), inputSize, outputSize)
	}
	for i, node := range nodes {
		want := model.NodeHidden
		switch {
		case i < inputSize:
			want = model.NodeInput
		case i >= len(nodes)-outputSize:
			want = model.NodeOutput
		}
		if node.Kind != want {
			return Network{}, fmt.Errorf("%w: node %d is %s, want %s", ErrInvalidLayout, i, node.Kind, want)
		}
		if _, err := Activation(node.Activation); err != nil {
			return Network{}, fmt.Errorf("node %d: %w", i, err)
		}
	}

	return Network{
		inputSize:    inputSize,
		outputSize:   outputSize,
		learningRate: learningRate,
		nodes:        append([]model.Node(nil), nodes...),
		edges:        append([]model.Edge(nil), edges...),
	}, nil
}

func (n Network) InputSize() int        { return n.inputSize }
func (n Network) OutputSize() int       { return n.outputSize }
func (n Network) LearningRate() float64 { return n.learningRate }
func (n Network) NodeCount() int        { return len(n.nodes) }
func (n Network) EdgeCount() int        { return len(n.edges) }
func (n Network) HiddenCount() int      { return len(n.nodes) - n.inputSize - n.outputSize }

// Complexity is the node count plus the edge count.
func (n Network) Complexity() int { return len(n.nodes) + len(n.edges) }

// IsZero reports whether n was never built.
func (n Network) IsZero() bool { return n.inputSize == 0 && len(n.nodes) == 0 }

func (n Network) Nodes() []model.Node {
	return append([]model.Node(nil), n.nodes...)
}

func (n Network) Edges() []model.Edge {
	return append([]model.Edge(nil), n.edges...)
}

// Compute runs one activation pass. Input nodes take the input values as-is;
// every other node sums its bias and weighted incoming values and applies its
// activation. Values of nodes not yet activated in this pass read as zero.
func (n Network) Compute(inputs []float64) ([]float64, error) {
	if len(inputs) != n.inputSize {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrInputSizeMismatch, len(inputs), n.inputSize)
	}

	incoming := make([][]int, len(n.nodes))
	for i, edge := range n.edges {
		if edge.From < 0 || edge.From >= len(n.nodes) || edge.To < 0 || edge.To >= len(n.nodes) {
			return nil, fmt.Errorf("%w: edge %s endpoints out of range (%d -> %d)", ErrInvalidNetwork, edge.ID, edge.From, edge.To)
		}
		incoming[edge.To] = append(incoming[edge.To], i)
	}

	values := make([]float64, len(n.nodes))
	for i, node := range n.nodes {
		if i < n.inputSize {
			values[i] = inputs[i]
			continue
		}
		total := node.Bias
		for _, edgeIndex := range incoming[i] {
			edge := n.edges[edgeIndex]
			total += edge.Weight * values[edge.From]
		}
		fn, err := Activation(node.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		values[i] = fn(total)
	}

	out := make([]float64, n.outputSize)
	copy(out, values[len(values)-n.outputSize:])
	return out, nil
}

// Validate checks the edge invariants: unique edge ids, sources that are not
// outputs, destinations that are not inputs, every input feeding at least one
// edge and every output fed by at least one edge.
func (n Network) Validate() error {
	var problems []error
	nodeCount := len(n.nodes)
	seen := make(map[string]struct{}, len(n.edges))
	outgoing := make([]int, nodeCount)
	incoming := make([]int, nodeCount)

	for _, edge := range n.edges {
		if _, dup := seen[edge.ID]; dup {
			problems = append(problems, fmt.Errorf("%w: duplicate edge id %s", ErrInvalidNetwork, edge.ID))
		}
		seen[edge.ID] = struct{}{}

		fromOK := edge.From >= 0 && edge.From < nodeCount-n.outputSize
		toOK := edge.To >= n.inputSize && edge.To <= nodeCount-1
		if !fromOK {
			problems = append(problems, fmt.Errorf("%w: edge %s source %d out of range", ErrInvalidNetwork, edge.ID, edge.From))
		}
		if !toOK {
			problems = append(problems, fmt.Errorf("%w: edge %s destination %d out of range", ErrInvalidNetwork, edge.ID, edge.To))
		}
		if fromOK && toOK {
			outgoing[edge.From]++
			incoming[edge.To]++
		}
	}

	for i := 0; i < n.inputSize && i < nodeCount; i++ {
		if outgoing[i] == 0 {
			problems = append(problems, fmt.Errorf("%w: input %d has no outgoing edge", ErrInvalidNetwork, i))
		}
	}
	for i := nodeCount - n.outputSize; i < nodeCount; i++ {
		if i >= 0 && incoming[i] == 0 {
			problems = append(problems, fmt.Errorf("%w: output %d has no incoming edge", ErrInvalidNetwork, i))
		}
	}
	return errors.Join(problems...)
}

func (n Network) Valid() bool {
	return n.Validate() == nil
}

// Record returns the plain-data form of n under the given id.
func (n Network) Record(id string) model.NetworkRecord {
	return model.NetworkRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: SupportedSchemaVersion,
			CodecVersion:  SupportedCodecVersion,
		},
		ID:           id,
		InputSize:    n.inputSize,
		OutputSize:   n.outputSize,
		LearningRate: n.learningRate,
		Nodes:        n.Nodes(),
		Edges:        n.Edges(),
	}
}

func FromRecord(record model.NetworkRecord) (Network, error) {
	network, err := FromParts(record.InputSize, record.OutputSize, record.LearningRate, record.Nodes, record.Edges)
	if err != nil {
		return Network{}, fmt.Errorf("network %s: %w", record.ID, err)
	}
	return network, nil
}
