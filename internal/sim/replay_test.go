package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"neurogrid/internal/agent"
	"neurogrid/internal/grid"
)

func TestScrollingPatternLeavesGap(t *testing.T) {
	board, err := grid.NewBoard(10, 8, 5, nil)
	require.NoError(t, err)
	pattern := ScrollingPattern(agent.Right, 4)

	first := pattern(0, board)
	require.Len(t, first, 5)
	rows := map[int]bool{}
	for _, p := range first {
		require.Equal(t, 9, p.X)
		rows[p.Y] = true
	}
	require.False(t, rows[0])
	require.False(t, rows[1])
	require.False(t, rows[7])

	later := pattern(5, board)
	xs := map[int]int{}
	for _, p := range later {
		xs[p.X]++
	}
	require.Equal(t, map[int]int{4: 5, 8: 5}, xs)
	require.Equal(t, later, pattern(5, board))
}

func TestScrollingPatternForLeftMovers(t *testing.T) {
	board, err := grid.NewBoard(10, 8, 5, nil)
	require.NoError(t, err)
	for _, p := range ScrollingPattern(agent.Left, 20)(3, board) {
		require.Equal(t, 3, p.X)
	}
}

func TestReplayDiesInWall(t *testing.T) {
	replay, err := NewReplay(ScrollingPattern(agent.Right, 100), nil)
	require.NoError(t, err)

	a := runner(t, "frozen", 0, 4, 7)
	state, err := replay.Start(a, 10, 8, 5)
	require.NoError(t, err)
	require.True(t, state.Alive)

	for i := 0; i < 10 && state.Alive; i++ {
		state, err = replay.Step(state)
		require.NoError(t, err)
	}
	require.False(t, state.Alive)
	require.Empty(t, state.Board.PositionsOf(grid.MarkerAgent))

	again, err := replay.Step(state)
	require.NoError(t, err)
	require.Equal(t, state.Tick, again.Tick)
}

func TestReplaySurvivesInGap(t *testing.T) {
	replay, err := NewReplay(ScrollingPattern(agent.Right, 100), nil)
	require.NoError(t, err)

	// Row 0 is the first wave's gap.
	state, err := replay.Start(runner(t, "frozen", 0, 0, 7), 10, 8, 5)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		state, err = replay.Step(state)
		require.NoError(t, err)
	}
	require.True(t, state.Alive)
	require.Equal(t, grid.Point{X: 9, Y: 0}, state.Agent.Position)
	require.Equal(t, 1, state.Crossings)
	require.Equal(t, 9, state.Agent.Moves)
	require.Equal(t, 7, state.Agent.Lineage)
}

func TestNewReplayRequiresPattern(t *testing.T) {
	_, err := NewReplay(nil, nil)
	require.Error(t, err)
}

func TestReplayNewHazardsAreLethalNextTick(t *testing.T) {
	// Each tick drops a hazard on the cell the runner is about to enter.
	ahead := func(tick int, board grid.Board) []grid.Point {
		if tick == 0 {
			return nil
		}
		return []grid.Point{{X: tick, Y: 0}}
	}
	replay, err := NewReplay(ahead, nil)
	require.NoError(t, err)

	state, err := replay.Start(runner(t, "frozen", 0, 0, 0), 10, 8, 5)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		state, err = replay.Step(state)
		require.NoError(t, err)
		require.True(t, state.Alive, "tick %d", state.Tick)
	}
	require.Equal(t, grid.Point{X: 3, Y: 0}, state.Agent.Position)
}
