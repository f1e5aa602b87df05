package sim

import (
	"errors"
	"fmt"

	"neurogrid/internal/agent"
	"neurogrid/internal/evo"
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// BoundaryPolicy decides what happens to an agent after it reaches the goal
// edge and spawns a child.
type BoundaryPolicy int

const (
	// ParentContinues keeps the parent alive; it wraps around to the spawn
	// edge on its next forward move.
	ParentContinues BoundaryPolicy = iota
	// ParentRetires removes the parent once its child is spawned.
	ParentRetires
)

func (p BoundaryPolicy) String() string {
	if p == ParentRetires {
		return "parent_retires"
	}
	return "parent_continues"
}

func ParseBoundaryPolicy(name string) (BoundaryPolicy, error) {
	switch name {
	case "", "parent_continues":
		return ParentContinues, nil
	case "parent_retires":
		return ParentRetires, nil
	default:
		return ParentContinues, fmt.Errorf("unknown boundary policy: %s", name)
	}
}

type Config struct {
	GridWidth  int
	GridHeight int
	CellSize   int

	MinAgents int
	MaxAgents int
	// MaxDifficulty is the hazard spawn rate reached when the population sits
	// at MaxAgents.
	MaxDifficulty float64
	LearningRate  float64
	// DifficultyWindow is the number of recent difficulty values averaged into
	// the hazard spawn rate.
	DifficultyWindow int
	HistoryLimit     int

	Direction      agent.Direction
	Sensors        []agent.Sensor
	BoundaryPolicy BoundaryPolicy

	MutationPolicy      []evo.WeightedOperator
	MaxMutationAttempts int
}

func DefaultConfig() Config {
	return Config{
		GridWidth:           48,
		GridHeight:          32,
		CellSize:            10,
		MinAgents:           10,
		MaxAgents:           600,
		MaxDifficulty:       4,
		LearningRate:        0.1,
		DifficultyWindow:    5,
		HistoryLimit:        500,
		Direction:           agent.Right,
		Sensors:             agent.DefaultSensors(),
		BoundaryPolicy:      ParentContinues,
		MutationPolicy:      evo.DefaultPolicy(),
		MaxMutationAttempts: evo.DefaultMaxAttempts,
	}
}

func (c Config) Validate() error {
	var problems []error
	if c.GridWidth <= 0 || c.GridHeight <= 0 || c.CellSize <= 0 {
		problems = append(problems, fmt.Errorf("%w: grid %dx%d cell %d", ErrInvalidConfig, c.GridWidth, c.GridHeight, c.CellSize))
	}
	if c.MinAgents <= 0 {
		problems = append(problems, fmt.Errorf("%w: min agents must be > 0, got %d", ErrInvalidConfig, c.MinAgents))
	}
	if c.MaxAgents < c.MinAgents {
		problems = append(problems, fmt.Errorf("%w: max agents %d below min agents %d", ErrInvalidConfig, c.MaxAgents, c.MinAgents))
	}
	if c.MaxDifficulty < 0 {
		problems = append(problems, fmt.Errorf("%w: max difficulty must be >= 0, got %f", ErrInvalidConfig, c.MaxDifficulty))
	}
	if c.LearningRate <= 0 || c.LearningRate >= 1 {
		problems = append(problems, fmt.Errorf("%w: learning rate must be in (0, 1), got %f", ErrInvalidConfig, c.LearningRate))
	}
	if c.DifficultyWindow <= 0 {
		problems = append(problems, fmt.Errorf("%w: difficulty window must be > 0, got %d", ErrInvalidConfig, c.DifficultyWindow))
	}
	if c.HistoryLimit <= 0 {
		problems = append(problems, fmt.Errorf("%w: history limit must be > 0, got %d", ErrInvalidConfig, c.HistoryLimit))
	}
	if len(c.Sensors) == 0 {
		problems = append(problems, fmt.Errorf("%w: at least one sensor is required", ErrInvalidConfig))
	}
	if c.MaxMutationAttempts < 0 {
		problems = append(problems, fmt.Errorf("%w: max mutation attempts must be >= 0, got %d", ErrInvalidConfig, c.MaxMutationAttempts))
	}
	return errors.Join(problems...)
}
