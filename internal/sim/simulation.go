// Package sim runs the generational loop: hazards sweep across a wrapping
// board, agents move against the pre-tick snapshot, collisions remove agents,
// goal crossings spawn mutated children, and the hazard rate follows the
// population size.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"neurogrid/internal/agent"
	"neurogrid/internal/evo"
	"neurogrid/internal/grid"
	"neurogrid/internal/model"
)

var ErrPopulationOutOfBounds = errors.New("population out of bounds")

// State is one immutable generation. Step never modifies a State it is given.
type State struct {
	Tick   int
	Board  grid.Board
	Agents []agent.Agent
	// KillersPerMove is the hazard spawn rate used by the next tick.
	KillersPerMove float64
	// Difficulties holds the most recent difficulty values, oldest first.
	Difficulties []float64
	History      History
	// PeakLineage is the deepest lineage ever observed in this run.
	PeakLineage int
}

func (s State) Population() int { return len(s.Agents) }

func (s State) Hazards() []grid.Point {
	return s.Board.PositionsOf(grid.MarkerKiller)
}

// MostEvolved returns the first agent with the highest lineage.
func (s State) MostEvolved() (agent.Agent, bool) {
	return mostEvolved(s.Agents)
}

type Simulation struct {
	config  Config
	rng     *rand.Rand
	mutator *evo.Mutator
	logger  *slog.Logger
}

func New(config Config, rng *rand.Rand, logger *slog.Logger) (*Simulation, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mutator, err := evo.NewMutator(config.MutationPolicy, config.MaxMutationAttempts, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	config.Sensors = append([]agent.Sensor(nil), config.Sensors...)
	return &Simulation{
		config:  config,
		rng:     rng,
		mutator: mutator,
		logger:  logger,
	}, nil
}

func (s *Simulation) Config() Config {
	c := s.config
	c.Sensors = append([]agent.Sensor(nil), s.config.Sensors...)
	c.MutationPolicy = append([]evo.WeightedOperator(nil), s.config.MutationPolicy...)
	return c
}

func (s *Simulation) Mutator() *evo.Mutator { return s.mutator }

// Init builds tick zero: MinAgents fresh agents on an empty board.
func (s *Simulation) Init() (State, error) {
	board, err := grid.NewBoard(s.config.GridWidth, s.config.GridHeight, s.config.CellSize, nil)
	if err != nil {
		return State{}, err
	}
	agents := make([]agent.Agent, 0, s.config.MinAgents)
	for len(agents) < s.config.MinAgents {
		fresh, err := s.freshAgent(board)
		if err != nil {
			return State{}, err
		}
		agents = append(agents, fresh)
	}

	history, err := NewHistory(s.config.HistoryLimit).Append(tickMetrics(0, agents, 0, 0, 0, tickCounts{}))
	if err != nil {
		return State{}, err
	}
	return State{
		Tick:    0,
		Board:   board.WithMarkers(boardMarkers(nil, agents)),
		Agents:  agents,
		History: history,
	}, nil
}

type tickCounts struct {
	births   int
	deaths   int
	respawns int
}

// Step advances state by one tick.
func (s *Simulation) Step(state State) (State, error) {
	cfg := s.config
	board := state.Board
	if board.GridWidth() != cfg.GridWidth || board.GridHeight() != cfg.GridHeight {
		return State{}, fmt.Errorf("board is %dx%d, simulation expects %dx%d",
			board.GridWidth(), board.GridHeight(), cfg.GridWidth, cfg.GridHeight)
	}
	tick := state.Tick + 1
	var counts tickCounts

	current := board.PositionsOf(grid.MarkerKiller)
	hazards := s.advanceHazards(board, current)
	hazards = append(hazards, s.spawnHazards(board, state.KillersPerMove)...)
	// Hazards placed this tick only become lethal on the next one.
	lethal := grid.NewPointSet(current)

	// Every agent senses the same pre-tick board.
	survivors := make([]agent.Agent, 0, len(state.Agents))
	crossed := make([]bool, 0, len(state.Agents))
	for _, a := range state.Agents {
		moved, action, err := a.Move(board, cfg.Sensors)
		if err != nil {
			return State{}, fmt.Errorf("tick %d: %w", tick, err)
		}
		if lethal.Has(moved.Position) {
			counts.deaths++
			continue
		}
		survivors = append(survivors, moved)
		crossed = append(crossed, moved.Crossed(board, action))
	}
	difficulty := cfg.Difficulty(len(survivors))

	agents := s.reproduce(board, survivors, crossed, &counts)
	agents, err := s.respawn(board, agents, &counts)
	if err != nil {
		return State{}, fmt.Errorf("tick %d: %w", tick, err)
	}
	if len(agents) < cfg.MinAgents || len(agents) > cfg.MaxAgents {
		return State{}, fmt.Errorf("%w: tick %d population %d not in [%d, %d]",
			ErrPopulationOutOfBounds, tick, len(agents), cfg.MinAgents, cfg.MaxAgents)
	}

	difficulties := pushWindow(state.Difficulties, difficulty, cfg.DifficultyWindow)
	killersPerMove := SmoothedKillersPerMove(difficulties)

	peak := state.PeakLineage
	for _, a := range agents {
		if a.Lineage > peak {
			peak = a.Lineage
		}
	}
	history := state.History
	if history.Limit() == 0 {
		history = NewHistory(cfg.HistoryLimit)
	}
	history, err = history.Append(tickMetrics(tick, agents, difficulty, killersPerMove, peak, counts))
	if err != nil {
		return State{}, err
	}

	return State{
		Tick:           tick,
		Board:          board.WithMarkers(boardMarkers(hazards, agents)),
		Agents:         agents,
		KillersPerMove: killersPerMove,
		Difficulties:   difficulties,
		History:        history,
		PeakLineage:    peak,
	}, nil
}

// advanceHazards moves every hazard one column toward the agents' spawn edge
// and drops those that leave the grid.
func (s *Simulation) advanceHazards(board grid.Board, hazards []grid.Point) []grid.Point {
	sweep := -s.config.Direction.Sign()
	out := make([]grid.Point, 0, len(hazards))
	for _, h := range hazards {
		next := grid.Point{X: h.X + sweep, Y: h.Y}
		if board.Contains(next) {
			out = append(out, next)
		}
	}
	return out
}

// spawnHazards places floor(rate) hazards on the agents' goal edge plus one
// more with probability equal to the fractional part of rate.
func (s *Simulation) spawnHazards(board grid.Board, rate float64) []grid.Point {
	if rate <= 0 {
		return nil
	}
	whole := math.Floor(rate)
	count := int(whole)
	if frac := rate - whole; frac > 0 && s.rng.Float64() < frac {
		count++
	}
	column := s.config.Direction.GoalColumn(board.GridWidth())
	out := make([]grid.Point, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, grid.Point{X: column, Y: s.rng.Intn(board.GridHeight())})
	}
	return out
}

// reproduce spawns one child per survivor that stepped forward onto the goal
// edge this tick while the population is below the ceiling. Children are
// appended after the parents and do not move this tick.
func (s *Simulation) reproduce(board grid.Board, survivors []agent.Agent, crossed []bool, counts *tickCounts) []agent.Agent {
	population := len(survivors)
	kept := make([]agent.Agent, 0, len(survivors))
	var children []agent.Agent
	for i, a := range survivors {
		if !crossed[i] || population >= s.config.MaxAgents {
			kept = append(kept, a)
			continue
		}
		children = append(children, a.Mutate(s.mutator, board, s.rng))
		counts.births++
		if s.config.BoundaryPolicy == ParentRetires {
			continue
		}
		kept = append(kept, a)
		population++
	}
	return append(kept, children...)
}

// respawn tops the population up to the floor with mutated clones of the most
// evolved agent, or fresh agents when nobody is left.
func (s *Simulation) respawn(board grid.Board, agents []agent.Agent, counts *tickCounts) ([]agent.Agent, error) {
	missing := s.config.MinAgents - len(agents)
	if missing <= 0 {
		return agents, nil
	}
	best, ok := mostEvolved(agents)
	s.logger.Debug("population below floor, respawning",
		"population", len(agents),
		"missing", missing,
		"from_lineage", best.Lineage,
		"fresh", !ok,
	)
	for i := 0; i < missing; i++ {
		if ok {
			agents = append(agents, best.Mutate(s.mutator, board, s.rng))
		} else {
			fresh, err := s.freshAgent(board)
			if err != nil {
				return nil, err
			}
			agents = append(agents, fresh)
		}
		counts.respawns++
	}
	return agents, nil
}

func (s *Simulation) freshAgent(board grid.Board) (agent.Agent, error) {
	network, err := agent.NewNetwork(s.config.Sensors, s.config.LearningRate, s.rng)
	if err != nil {
		return agent.Agent{}, err
	}
	return agent.Spawn(network, s.config.Direction, board, s.rng), nil
}

func mostEvolved(agents []agent.Agent) (agent.Agent, bool) {
	if len(agents) == 0 {
		return agent.Agent{}, false
	}
	best := agents[0]
	for _, a := range agents[1:] {
		if a.Lineage > best.Lineage {
			best = a
		}
	}
	return best, true
}

func boardMarkers(hazards []grid.Point, agents []agent.Agent) []grid.Marker {
	markers := make([]grid.Marker, 0, len(hazards)+len(agents))
	for _, h := range hazards {
		markers = append(markers, grid.Marker{Position: h, Type: grid.MarkerKiller, Color: grid.ColorKiller})
	}
	for _, a := range agents {
		markers = append(markers, grid.Marker{Position: a.Position, Type: grid.MarkerAgent, Color: grid.ColorAgent})
	}
	return markers
}

func tickMetrics(tick int, agents []agent.Agent, difficulty, killersPerMove float64, peak int, counts tickCounts) model.TickMetrics {
	m := model.TickMetrics{
		Tick:           tick,
		Population:     len(agents),
		PeakLineage:    peak,
		Difficulty:     difficulty,
		KillersPerMove: killersPerMove,
		Births:         counts.births,
		Deaths:         counts.deaths,
		Respawns:       counts.respawns,
	}
	for i, a := range agents {
		complexity := a.Network.Complexity()
		if i == 0 || a.Lineage < m.LineageMin {
			m.LineageMin = a.Lineage
		}
		if i == 0 || a.Lineage > m.LineageMax {
			m.LineageMax = a.Lineage
		}
		if i == 0 || complexity < m.ComplexityMin {
			m.ComplexityMin = complexity
		}
		if i == 0 || complexity > m.ComplexityMax {
			m.ComplexityMax = complexity
		}
	}
	if m.LineageMax > m.PeakLineage {
		m.PeakLineage = m.LineageMax
	}
	return m
}
