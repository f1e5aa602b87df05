package sim

import (
	"fmt"

	"neurogrid/internal/agent"
	"neurogrid/internal/grid"
)

// HazardPattern returns the hazard positions for tick on board. Patterns are
// scripted and must not depend on anything but their arguments.
type HazardPattern func(tick int, board grid.Board) []grid.Point

// ScrollingPattern sends a wall of hazards across the board every interval
// ticks, entering on the goal edge of direction. Each wall leaves a three row
// gap that shifts from wave to wave.
func ScrollingPattern(direction agent.Direction, interval int) HazardPattern {
	if interval <= 0 {
		interval = 1
	}
	return func(tick int, board grid.Board) []grid.Point {
		width, height := board.GridWidth(), board.GridHeight()
		entry := direction.GoalColumn(width)
		sweep := -direction.Sign()
		var out []grid.Point
		for wave := tick / interval; wave >= 0; wave-- {
			age := tick - wave*interval
			if age >= width {
				break
			}
			x := entry + sweep*age
			gap := (wave * 7) % height
			for y := 0; y < height; y++ {
				if d := grid.Mod(y-gap, height); d <= 1 || d == height-1 {
					continue
				}
				out = append(out, grid.Point{X: x, Y: y})
			}
		}
		return out
	}
}

// ReplayState is a single frozen agent stepped against a scripted pattern.
type ReplayState struct {
	Tick  int
	Board grid.Board
	Agent agent.Agent
	Alive bool
	// Crossings counts forward moves that landed on the goal edge.
	Crossings int
}

// Replay steps one agent against a hazard pattern without any generational
// logic: no children, no respawns, no mutation.
type Replay struct {
	pattern HazardPattern
	sensors []agent.Sensor
}

func NewReplay(pattern HazardPattern, sensors []agent.Sensor) (*Replay, error) {
	if pattern == nil {
		return nil, fmt.Errorf("hazard pattern is required")
	}
	if len(sensors) == 0 {
		sensors = agent.DefaultSensors()
	}
	return &Replay{pattern: pattern, sensors: append([]agent.Sensor(nil), sensors...)}, nil
}

// Start places a on an empty board of the given size at its recorded position.
func (r *Replay) Start(a agent.Agent, gridWidth, gridHeight, cellSize int) (ReplayState, error) {
	board, err := grid.NewBoard(gridWidth, gridHeight, cellSize, nil)
	if err != nil {
		return ReplayState{}, err
	}
	a.Position = board.Wrap(a.Position)
	hazards := r.pattern(0, board)
	alive := !grid.NewPointSet(hazards).Has(a.Position)
	return ReplayState{
		Board: board.WithMarkers(replayMarkers(hazards, a, alive)),
		Agent: a,
		Alive: alive,
	}, nil
}

// Step advances a replay by one tick. A dead replay is returned unchanged.
func (r *Replay) Step(state ReplayState) (ReplayState, error) {
	if !state.Alive {
		return state, nil
	}
	board := state.Board
	tick := state.Tick + 1
	moved, action, err := state.Agent.Move(board, r.sensors)
	if err != nil {
		return ReplayState{}, fmt.Errorf("replay tick %d: %w", tick, err)
	}
	hazards := r.pattern(tick, board)
	alive := !grid.NewPointSet(board.PositionsOf(grid.MarkerKiller)).Has(moved.Position)
	crossings := state.Crossings
	if alive && moved.Crossed(board, action) {
		crossings++
	}
	return ReplayState{
		Tick:      tick,
		Board:     board.WithMarkers(replayMarkers(hazards, moved, alive)),
		Agent:     moved,
		Alive:     alive,
		Crossings: crossings,
	}, nil
}

func replayMarkers(hazards []grid.Point, a agent.Agent, alive bool) []grid.Marker {
	var agents []agent.Agent
	if alive {
		agents = []agent.Agent{a}
	}
	return boardMarkers(hazards, agents)
}
