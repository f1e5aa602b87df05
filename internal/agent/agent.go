// Package agent pairs a network genome with its position on the board and
// turns board observations into moves.
package agent

import (
	"errors"
	"fmt"
	"math/rand"

	"neurogrid/internal/grid"
	"neurogrid/internal/ids"
	"neurogrid/internal/model"
	"neurogrid/internal/nn"
)

var ErrOutputSizeMismatch = errors.New("output size mismatch")

type Direction int

const (
	Right Direction = iota
	Left
)

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

func ParseDirection(name string) (Direction, error) {
	switch name {
	case "", "right":
		return Right, nil
	case "left":
		return Left, nil
	default:
		return Right, fmt.Errorf("unknown direction: %s", name)
	}
}

// Sign is +1 for right movers and -1 for left movers.
func (d Direction) Sign() int {
	if d == Left {
		return -1
	}
	return 1
}

// SpawnColumn is the edge agents enter from.
func (d Direction) SpawnColumn(width int) int {
	if d == Left {
		return width - 1
	}
	return 0
}

// GoalColumn is the edge agents are trying to reach.
func (d Direction) GoalColumn(width int) int {
	if d == Left {
		return 0
	}
	return width - 1
}

type Action int

const (
	Up Action = iota
	Down
	Forward
)

func (a Action) String() string {
	switch a {
	case Up:
		return "up"
	case Down:
		return "down"
	case Forward:
		return "forward"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Actions maps network output positions to actions.
var Actions = []Action{Up, Down, Forward}

// Sensor measures the forward distance to the nearest marker of Target on the
// row RowOffset away from the agent.
type Sensor struct {
	RowOffset int
	Target    grid.MarkerType
}

// DefaultSensors look for killers on the row above, the agent's row and the
// row below.
func DefaultSensors() []Sensor {
	return []Sensor{
		{RowOffset: -1, Target: grid.MarkerKiller},
		{RowOffset: 0, Target: grid.MarkerKiller},
		{RowOffset: 1, Target: grid.MarkerKiller},
	}
}

// Mutator produces a mutated copy of a network.
type Mutator interface {
	Mutate(network nn.Network, rng *rand.Rand) nn.Network
}

type Agent struct {
	ID        string
	Network   nn.Network
	Position  grid.Point
	Moves     int
	Lineage   int
	Direction Direction
}

// NewNetwork builds a fresh genome sized for the given sensors, biased toward
// moving forward.
func NewNetwork(sensors []Sensor, learningRate float64, rng *rand.Rand) (nn.Network, error) {
	return nn.New(len(sensors), len(Actions), learningRate, rng, nn.WithOutputBias(int(Forward)))
}

// Spawn places a new lineage-zero agent on a random row of the spawn edge.
func Spawn(network nn.Network, direction Direction, board grid.Board, rng *rand.Rand) Agent {
	return Agent{
		ID:        ids.New(rng),
		Network:   network,
		Position:  spawnPosition(direction, board, rng),
		Direction: direction,
	}
}

// FromSample rebuilds a frozen agent at the recorded position.
func FromSample(record model.AgentRecord, network nn.Network) (Agent, error) {
	direction, err := ParseDirection(record.Direction)
	if err != nil {
		return Agent{}, err
	}
	if network.IsZero() {
		return Agent{}, errors.New("network is required")
	}
	return Agent{
		ID:        record.ID,
		Network:   network,
		Position:  grid.Point{X: record.Position.X, Y: record.Position.Y},
		Moves:     record.Moves,
		Lineage:   record.Lineage,
		Direction: direction,
	}, nil
}

func (a Agent) Snapshot() model.AgentRecord {
	return model.AgentRecord{
		ID:        a.ID,
		Position:  model.Position{X: a.Position.X, Y: a.Position.Y},
		Moves:     a.Moves,
		Lineage:   a.Lineage,
		Direction: a.Direction.String(),
	}
}

// ThreatDistance is the wrapped forward distance from the agent to the nearest
// target marker on the row rowOffset away. With no marker on that row it is
// the grid width.
func (a Agent) ThreatDistance(board grid.Board, rowOffset int, target grid.MarkerType) float64 {
	return float64(board.ForwardDistance(a.Position.X, a.Position.Y+rowOffset, a.Direction.Sign(), target))
}

func (a Agent) Sense(board grid.Board, sensors []Sensor) []float64 {
	inputs := make([]float64, len(sensors))
	for i, sensor := range sensors {
		inputs[i] = a.ThreatDistance(board, sensor.RowOffset, sensor.Target)
	}
	return inputs
}

// Decide picks the action with the largest output; ties go to the lowest index.
func Decide(outputs []float64) (Action, error) {
	if len(outputs) != len(Actions) {
		return 0, fmt.Errorf("%w: got=%d want=%d", ErrOutputSizeMismatch, len(outputs), len(Actions))
	}
	best := 0
	for i := 1; i < len(outputs); i++ {
		if outputs[i] > outputs[best] {
			best = i
		}
	}
	return Actions[best], nil
}

func (a Agent) stepFor(action Action) grid.Step {
	switch action {
	case Up:
		return grid.Step{DY: -1}
	case Down:
		return grid.Step{DY: 1}
	default:
		return grid.Step{DX: a.Direction.Sign()}
	}
}

// Move senses board, runs the network and returns the moved agent. Moves only
// counts forward steps. The receiver is left untouched.
func (a Agent) Move(board grid.Board, sensors []Sensor) (Agent, Action, error) {
	outputs, err := a.Network.Compute(a.Sense(board, sensors))
	if err != nil {
		return Agent{}, 0, fmt.Errorf("agent %s: %w", a.ID, err)
	}
	action, err := Decide(outputs)
	if err != nil {
		return Agent{}, 0, fmt.Errorf("agent %s: %w", a.ID, err)
	}
	next := a
	next.Position = board.Destination(a.Position, a.stepFor(action))
	if action == Forward {
		next.Moves++
	}
	return next, action, nil
}

func (a Agent) ReachedGoal(board grid.Board) bool {
	return a.Position.X == a.Direction.GoalColumn(board.GridWidth())
}

// Crossed reports whether a move made with action landed the agent on its
// goal column. Sideways moves along the goal column do not count.
func (a Agent) Crossed(board grid.Board, action Action) bool {
	return action == Forward && a.ReachedGoal(board)
}

type SpawnOption func(*spawnOptions)

type spawnOptions struct {
	position *grid.Point
}

// AtPosition overrides the spawn rule with a fixed position.
func AtPosition(p grid.Point) SpawnOption {
	return func(o *spawnOptions) {
		o.position = &p
	}
}

// Mutate returns a child with a mutated network, a fresh id, reset moves, the
// parent's direction and a new spawn position.
func (a Agent) Mutate(mutator Mutator, board grid.Board, rng *rand.Rand, opts ...SpawnOption) Agent {
	options := spawnOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	network := mutator.Mutate(a.Network, rng)
	child := Agent{
		ID:        ids.New(rng),
		Network:   network,
		Lineage:   a.Lineage + 1,
		Direction: a.Direction,
	}
	if options.position != nil {
		child.Position = board.Wrap(*options.position)
	} else {
		child.Position = spawnPosition(a.Direction, board, rng)
	}
	return child
}

func spawnPosition(direction Direction, board grid.Board, rng *rand.Rand) grid.Point {
	return grid.Point{
		X: direction.SpawnColumn(board.GridWidth()),
		Y: rng.Intn(board.GridHeight()),
	}
}
