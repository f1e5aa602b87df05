package evo

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"neurogrid/internal/nn"
)

const DefaultMaxAttempts = 32

// Mutator applies one randomly chosen operator per call, retrying with a fresh
// choice whenever the operator is not applicable, panics, or produces a network
// that fails validation.
type Mutator struct {
	policy      []WeightedOperator
	total       float64
	maxAttempts int
	logger      *slog.Logger
}

// Result describes a single Mutate call.
type Result struct {
	Network  nn.Network
	Operator OperatorKind
	Attempts int
	// Applied is false when every attempt failed and the parent was returned.
	Applied bool
}

func NewMutator(policy []WeightedOperator, maxAttempts int, logger *slog.Logger) (*Mutator, error) {
	if len(policy) == 0 {
		policy = DefaultPolicy()
	}
	total := 0.0
	for i, item := range policy {
		if item.Kind < 0 || int(item.Kind) >= len(operatorNames) {
			return nil, fmt.Errorf("mutation policy operator is unknown at index %d", i)
		}
		if item.Weight < 0 {
			return nil, fmt.Errorf("mutation policy weight must be >= 0 at index %d", i)
		}
		total += item.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("mutation policy requires at least one positive weight")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mutator{
		policy:      append([]WeightedOperator(nil), policy...),
		total:       total,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

func (m *Mutator) Mutate(network nn.Network, rng *rand.Rand) nn.Network {
	return m.MutateWithReport(network, rng).Network
}

func (m *Mutator) MutateWithReport(network nn.Network, rng *rand.Rand) Result {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		kind := m.choose(rng)
		next, err := m.apply(kind, network, rng)
		if err != nil {
			if !errors.Is(err, ErrNotApplicable) {
				m.logger.Warn("mutation operator failed", "operator", kind.String(), "attempt", attempt, "error", err)
			}
			continue
		}
		if err := next.Validate(); err != nil {
			m.logger.Warn("mutation produced invalid network",
				"operator", kind.String(),
				"attempt", attempt,
				"nodes", next.NodeCount(),
				"edges", next.EdgeCount(),
				"error", err,
			)
			continue
		}
		return Result{Network: next, Operator: kind, Attempts: attempt, Applied: true}
	}

	attempts := m.maxAttempts + 1
	next, err := m.apply(MutateEdgeWeight, network, rng)
	if err == nil && next.Valid() {
		return Result{Network: next, Operator: MutateEdgeWeight, Attempts: attempts, Applied: true}
	}
	m.logger.Warn("mutation attempts exhausted, keeping parent",
		"attempts", attempts,
		"nodes", network.NodeCount(),
		"edges", network.EdgeCount(),
	)
	return Result{Network: network, Operator: MutateEdgeWeight, Attempts: attempts}
}

func (m *Mutator) apply(kind OperatorKind, network nn.Network, rng *rand.Rand) (out nn.Network, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("mutation operator panicked",
				"operator", kind.String(),
				"panic", r,
				"network", network.Record(""),
			)
			out = nn.Network{}
			err = fmt.Errorf("%w: %s panicked: %v", ErrNotApplicable, kind, r)
		}
	}()
	return Apply(kind, network, rng)
}

func (m *Mutator) choose(rng *rand.Rand) OperatorKind {
	return m.pick(rng.Float64() * m.total)
}

// pick maps a point in [0, total] onto the cumulative weights. Zero-weight
// operators are never returned, including when rounding leaves point past the
// final sum.
func (m *Mutator) pick(point float64) OperatorKind {
	acc := 0.0
	last := -1
	for i, item := range m.policy {
		if item.Weight <= 0 {
			continue
		}
		acc += item.Weight
		last = i
		if point <= acc {
			return item.Kind
		}
	}
	return m.policy[last].Kind
}
