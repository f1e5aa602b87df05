package agent

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"neurogrid/internal/evo"
	"neurogrid/internal/grid"
	"neurogrid/internal/model"
	"neurogrid/internal/nn"
)

// biasNetwork ignores its inputs and always outputs the given biases.
func biasNetwork(t *testing.T, up, down, forward float64) nn.Network {
	t.Helper()
	nodes := []model.Node{
		{ID: "i0", Kind: model.NodeInput, Activation: nn.ActivationIdentity},
		{ID: "i1", Kind: model.NodeInput, Activation: nn.ActivationIdentity},
		{ID: "i2", Kind: model.NodeInput, Activation: nn.ActivationIdentity},
		{ID: "up", Kind: model.NodeOutput, Activation: nn.ActivationIdentity, Bias: up},
		{ID: "down", Kind: model.NodeOutput, Activation: nn.ActivationIdentity, Bias: down},
		{ID: "fwd", Kind: model.NodeOutput, Activation: nn.ActivationIdentity, Bias: forward},
	}
	edges := []model.Edge{
		{ID: "e0", From: 0, To: 3, Weight: 0},
		{ID: "e1", From: 1, To: 4, Weight: 0},
		{ID: "e2", From: 2, To: 5, Weight: 0},
	}
	network, err := nn.FromParts(3, 3, 0.1, nodes, edges)
	require.NoError(t, err)
	return network
}

func board(t *testing.T, killers ...grid.Point) grid.Board {
	t.Helper()
	markers := make([]grid.Marker, 0, len(killers))
	for _, k := range killers {
		markers = append(markers, grid.Marker{Position: k, Type: grid.MarkerKiller, Color: grid.ColorKiller})
	}
	b, err := grid.NewBoard(10, 8, 5, markers)
	require.NoError(t, err)
	return b
}

func TestThreatDistance(t *testing.T) {
	b := board(t, grid.Point{X: 8, Y: 5}, grid.Point{X: 1, Y: 5}, grid.Point{X: 6, Y: 4}, grid.Point{X: 2, Y: 7})

	right := Agent{Position: grid.Point{X: 5, Y: 5}, Direction: Right}
	require.Equal(t, 3.0, right.ThreatDistance(b, 0, grid.MarkerKiller))
	require.Equal(t, 1.0, right.ThreatDistance(b, -1, grid.MarkerKiller))
	require.Equal(t, 10.0, right.ThreatDistance(b, 1, grid.MarkerKiller))

	left := Agent{Position: grid.Point{X: 5, Y: 5}, Direction: Left}
	require.Equal(t, 4.0, left.ThreatDistance(b, 0, grid.MarkerKiller))
	require.Equal(t, 9.0, left.ThreatDistance(b, -1, grid.MarkerKiller))

	// Row offsets wrap vertically.
	top := Agent{Position: grid.Point{X: 0, Y: 0}, Direction: Right}
	require.Equal(t, 2.0, top.ThreatDistance(b, -1, grid.MarkerKiller))
}

func TestSenseUsesSensorLayout(t *testing.T) {
	b := board(t, grid.Point{X: 7, Y: 2}, grid.Point{X: 4, Y: 3})
	a := Agent{Position: grid.Point{X: 3, Y: 3}, Direction: Right}
	require.Equal(t, []float64{4, 1, 10}, a.Sense(b, DefaultSensors()))
}

func TestDecideFirstMaxWins(t *testing.T) {
	action, err := Decide([]float64{1, 1, 0})
	require.NoError(t, err)
	require.Equal(t, Up, action)

	action, err = Decide([]float64{0, 2, 2})
	require.NoError(t, err)
	require.Equal(t, Down, action)

	action, err = Decide([]float64{-1, -2, 0.5})
	require.NoError(t, err)
	require.Equal(t, Forward, action)

	_, err = Decide([]float64{1, 2})
	require.ErrorIs(t, err, ErrOutputSizeMismatch)
}

func TestMoveForwardCountsAndWraps(t *testing.T) {
	b := board(t)
	a := Agent{ID: "a", Network: biasNetwork(t, 0, 0, 1), Position: grid.Point{X: 9, Y: 2}, Direction: Right}

	next, action, err := a.Move(b, DefaultSensors())
	require.NoError(t, err)
	require.Equal(t, Forward, action)
	require.Equal(t, grid.Point{X: 0, Y: 2}, next.Position)
	require.Equal(t, 1, next.Moves)
	require.Equal(t, grid.Point{X: 9, Y: 2}, a.Position)
	require.Zero(t, a.Moves)
}

func TestMoveSidewaysDoesNotCount(t *testing.T) {
	b := board(t)
	a := Agent{ID: "a", Network: biasNetwork(t, 1, 0, 0), Position: grid.Point{X: 4, Y: 0}, Direction: Left}

	next, action, err := a.Move(b, DefaultSensors())
	require.NoError(t, err)
	require.Equal(t, Up, action)
	require.Equal(t, grid.Point{X: 4, Y: 7}, next.Position)
	require.Zero(t, next.Moves)

	a.Network = biasNetwork(t, 0, 0, 1)
	next, _, err = a.Move(b, DefaultSensors())
	require.NoError(t, err)
	require.Equal(t, grid.Point{X: 3, Y: 0}, next.Position)
}

func TestMoveRejectsSensorMismatch(t *testing.T) {
	a := Agent{ID: "a", Network: biasNetwork(t, 0, 0, 1), Direction: Right}
	_, _, err := a.Move(board(t), DefaultSensors()[:2])
	require.ErrorIs(t, err, nn.ErrInputSizeMismatch)
}

func TestMutateProducesChild(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	mutator, err := evo.NewMutator(nil, 0, nil)
	require.NoError(t, err)
	network, err := NewNetwork(DefaultSensors(), 0.1, rng)
	require.NoError(t, err)

	b := board(t)
	parent := Agent{ID: "parent", Network: network, Position: grid.Point{X: 9, Y: 3}, Moves: 12, Lineage: 4, Direction: Left}
	child := parent.Mutate(mutator, b, rng)

	require.NotEqual(t, parent.ID, child.ID)
	require.NotEmpty(t, child.ID)
	require.Equal(t, 5, child.Lineage)
	require.Zero(t, child.Moves)
	require.Equal(t, Left, child.Direction)
	require.Equal(t, 9, child.Position.X)
	require.True(t, child.Network.Valid())
	require.Equal(t, 12, parent.Moves)

	fixed := parent.Mutate(mutator, b, rng, AtPosition(grid.Point{X: 4, Y: 9}))
	require.Equal(t, grid.Point{X: 4, Y: 1}, fixed.Position)
}

func TestSpawnEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	b := board(t)
	network, err := NewNetwork(DefaultSensors(), 0.1, rng)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		r := Spawn(network, Right, b, rng)
		require.Equal(t, 0, r.Position.X)
		require.True(t, b.Contains(r.Position))
		l := Spawn(network, Left, b, rng)
		require.Equal(t, 9, l.Position.X)
		require.True(t, b.Contains(l.Position))
	}
}

func TestNewNetworkPrefersForward(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	network, err := NewNetwork(DefaultSensors(), 0.1, rng)
	require.NoError(t, err)
	out, err := network.Compute([]float64{0, 0, 0})
	require.NoError(t, err)
	action, err := Decide(out)
	require.NoError(t, err)
	require.Equal(t, Forward, action)
}

func TestReachedGoal(t *testing.T) {
	b := board(t)
	require.True(t, Agent{Position: grid.Point{X: 9}, Direction: Right}.ReachedGoal(b))
	require.False(t, Agent{Position: grid.Point{X: 8}, Direction: Right}.ReachedGoal(b))
	require.True(t, Agent{Position: grid.Point{X: 0}, Direction: Left}.ReachedGoal(b))
}

func TestCrossedNeedsForwardMove(t *testing.T) {
	b := board(t)
	onGoal := Agent{Position: grid.Point{X: 9, Y: 3}, Direction: Right}
	require.True(t, onGoal.Crossed(b, Forward))
	require.False(t, onGoal.Crossed(b, Up))
	require.False(t, onGoal.Crossed(b, Down))
	require.False(t, Agent{Position: grid.Point{X: 8}, Direction: Right}.Crossed(b, Forward))
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := Agent{ID: "a", Network: biasNetwork(t, 0, 0, 1), Position: grid.Point{X: 3, Y: 4}, Moves: 7, Lineage: 2, Direction: Left}
	restored, err := FromSample(a.Snapshot(), a.Network)
	require.NoError(t, err)
	require.Equal(t, a.ID, restored.ID)
	require.Equal(t, a.Position, restored.Position)
	require.Equal(t, a.Moves, restored.Moves)
	require.Equal(t, a.Lineage, restored.Lineage)
	require.Equal(t, a.Direction, restored.Direction)

	_, err = FromSample(a.Snapshot(), nn.Network{})
	require.Error(t, err)
}
