// Package stream drives a simulation tick by tick and feeds JSON frames to
// renderers over WebSocket.
package stream

import (
	"math"
	"strconv"

	"neurogrid/internal/agent"
	"neurogrid/internal/grid"
	"neurogrid/internal/model"
	"neurogrid/internal/nn"
	"neurogrid/internal/sim"
)

type AgentView struct {
	ID       string     `json:"id"`
	Position grid.Point `json:"position"`
	Moves    int        `json:"moves"`
	Lineage  int        `json:"lineage"`
}

type NodeView struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
	Label      string  `json:"label"`
}

type EdgeView struct {
	ID     string  `json:"id"`
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
	Label  string  `json:"label"`
}

// NetworkView is a network laid out for a node/edge graph renderer.
type NetworkView struct {
	AgentID string     `json:"agent_id,omitempty"`
	Nodes   []NodeView `json:"nodes"`
	Edges   []EdgeView `json:"edges"`
}

// Frame is everything a renderer needs to draw one tick.
type Frame struct {
	Tick       int                `json:"tick"`
	Mode       Mode               `json:"mode,omitempty"`
	GridWidth  int                `json:"grid_width"`
	GridHeight int                `json:"grid_height"`
	CellSize   int                `json:"cell_size"`
	Markers    []grid.Marker      `json:"markers"`
	Agents     []AgentView        `json:"agents"`
	Metrics    *model.TickMetrics `json:"metrics,omitempty"`
	Best       *NetworkView       `json:"best,omitempty"`
}

// NewFrame renders state. With withNetwork set, the most evolved agent's
// network is attached.
func NewFrame(state sim.State, withNetwork bool) Frame {
	frame := Frame{
		Tick:       state.Tick,
		GridWidth:  state.Board.GridWidth(),
		GridHeight: state.Board.GridHeight(),
		CellSize:   state.Board.CellSize(),
		Markers:    state.Board.Markers(),
		Agents:     make([]AgentView, 0, len(state.Agents)),
	}
	for _, a := range state.Agents {
		frame.Agents = append(frame.Agents, agentView(a))
	}
	if last, ok := state.History.Last(); ok {
		frame.Metrics = &last
	}
	if withNetwork {
		if best, ok := state.MostEvolved(); ok {
			view := ViewNetwork(best.Network)
			view.AgentID = best.ID
			frame.Best = &view
		}
	}
	return frame
}

func agentView(a agent.Agent) AgentView {
	return AgentView{ID: a.ID, Position: a.Position, Moves: a.Moves, Lineage: a.Lineage}
}

// ViewNetwork labels nodes with their activation and rounded bias, and edges
// with their rounded weight.
func ViewNetwork(network nn.Network) NetworkView {
	nodes := network.Nodes()
	edges := network.Edges()
	view := NetworkView{
		Nodes: make([]NodeView, 0, len(nodes)),
		Edges: make([]EdgeView, 0, len(edges)),
	}
	for _, node := range nodes {
		view.Nodes = append(view.Nodes, NodeView{
			ID:         node.ID,
			Kind:       string(node.Kind),
			Activation: node.Activation,
			Bias:       node.Bias,
			Label:      node.Activation + " " + round(node.Bias),
		})
	}
	for _, edge := range edges {
		view.Edges = append(view.Edges, EdgeView{
			ID:     edge.ID,
			From:   edge.From,
			To:     edge.To,
			Weight: edge.Weight,
			Label:  round(edge.Weight),
		})
	}
	return view
}

func round(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		// drop the sign of -0
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
