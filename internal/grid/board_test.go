package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBoardRejectsBadDimensions(t *testing.T) {
	_, err := NewBoard(0, 10, 5, nil)
	require.ErrorIs(t, err, ErrInvalidDimensions)
	_, err = NewBoard(10, 10, 0, nil)
	require.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestDestinationWraps(t *testing.T) {
	board, err := NewBoard(48, 32, 10, nil)
	require.NoError(t, err)

	require.Equal(t, Point{X: 0, Y: 5}, board.Destination(Point{X: 47, Y: 5}, Step{DX: 1}))
	require.Equal(t, Point{X: 47, Y: 5}, board.Destination(Point{X: 0, Y: 5}, Step{DX: -1}))
	require.Equal(t, Point{X: 3, Y: 31}, board.Destination(Point{X: 3, Y: 0}, Step{DY: -1}))
	require.Equal(t, Point{X: 3, Y: 0}, board.Destination(Point{X: 3, Y: 31}, Step{DY: 1}))
}

func TestPositionsOfFiltersByType(t *testing.T) {
	board, err := NewBoard(10, 10, 5, []Marker{
		{Position: Point{X: 1, Y: 1}, Type: MarkerKiller, Color: ColorKiller},
		{Position: Point{X: 2, Y: 2}, Type: MarkerAgent, Color: ColorAgent},
		{Position: Point{X: 3, Y: 3}, Type: MarkerKiller, Color: ColorKiller},
	})
	require.NoError(t, err)

	require.Equal(t, []Point{{X: 1, Y: 1}, {X: 3, Y: 3}}, board.PositionsOf(MarkerKiller))
	require.Equal(t, []Point{{X: 2, Y: 2}}, board.PositionsOf(MarkerAgent))
	require.Empty(t, board.PositionsOf(MarkerReward))
	require.True(t, board.HasMarker(Point{X: 3, Y: 3}, MarkerKiller))
	require.False(t, board.HasMarker(Point{X: 2, Y: 2}, MarkerKiller))
}

func TestBoardIsImmutable(t *testing.T) {
	markers := []Marker{{Position: Point{X: 1, Y: 1}, Type: MarkerKiller}}
	board, err := NewBoard(10, 10, 5, markers)
	require.NoError(t, err)

	markers[0].Position = Point{X: 9, Y: 9}
	got := board.Markers()
	got[0].Type = MarkerReward

	require.Equal(t, []Point{{X: 1, Y: 1}}, board.PositionsOf(MarkerKiller))

	next := board.WithMarkers(nil)
	require.Empty(t, next.Markers())
	require.Len(t, board.Markers(), 1)
	require.Equal(t, 10, next.GridWidth())
}

func TestMod(t *testing.T) {
	require.Equal(t, 2, Mod(-1, 3))
	require.Equal(t, 0, Mod(6, 3))
	require.Equal(t, 0, Mod(5, 0))
}

func TestForwardDistance(t *testing.T) {
	board, err := NewBoard(10, 4, 5, []Marker{
		{Position: Point{X: 8, Y: 1}, Type: MarkerKiller},
		{Position: Point{X: 2, Y: 1}, Type: MarkerKiller},
		{Position: Point{X: 5, Y: 2}, Type: MarkerReward},
	})
	require.NoError(t, err)

	require.Equal(t, 3, board.ForwardDistance(5, 1, 1, MarkerKiller))
	require.Equal(t, 3, board.ForwardDistance(5, 1, -1, MarkerKiller))
	require.Equal(t, 0, board.ForwardDistance(2, 5, 1, MarkerKiller))
	require.Equal(t, 10, board.ForwardDistance(5, 2, 1, MarkerKiller))
	require.Equal(t, 0, board.ForwardDistance(5, 2, 1, MarkerReward))
}
