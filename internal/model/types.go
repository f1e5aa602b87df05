package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type NodeKind string

const (
	NodeInput  NodeKind = "input"
	NodeHidden NodeKind = "hidden"
	NodeOutput NodeKind = "output"
)

type Node struct {
	ID         string   `json:"id"`
	Kind       NodeKind `json:"kind"`
	Bias       float64  `json:"bias"`
	Activation string   `json:"activation"`
}

// Edge references nodes by their position in the owning network's node list.
type Edge struct {
	ID     string  `json:"id"`
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

type NetworkRecord struct {
	VersionedRecord
	ID           string  `json:"id"`
	InputSize    int     `json:"input_size"`
	OutputSize   int     `json:"output_size"`
	LearningRate float64 `json:"learning_rate"`
	Nodes        []Node  `json:"nodes"`
	Edges        []Edge  `json:"edges"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type AgentRecord struct {
	ID        string   `json:"id"`
	Position  Position `json:"position"`
	Moves     int      `json:"moves"`
	Lineage   int      `json:"lineage"`
	Direction string   `json:"direction"`
	NetworkID string   `json:"network_id,omitempty"`
}

type TickMetrics struct {
	Tick           int     `json:"tick"`
	Population     int     `json:"population"`
	LineageMin     int     `json:"lineage_min"`
	LineageMax     int     `json:"lineage_max"`
	PeakLineage    int     `json:"peak_lineage"`
	ComplexityMin  int     `json:"complexity_min"`
	ComplexityMax  int     `json:"complexity_max"`
	Difficulty     float64 `json:"difficulty"`
	KillersPerMove float64 `json:"killers_per_move"`
	Births         int     `json:"births"`
	Deaths         int     `json:"deaths"`
	Respawns       int     `json:"respawns"`
}

type RunRecord struct {
	VersionedRecord
	ID              string  `json:"id"`
	CreatedAtUTC    string  `json:"created_at_utc"`
	Seed            int64   `json:"seed"`
	Ticks           int     `json:"ticks"`
	GridWidth       int     `json:"grid_width"`
	GridHeight      int     `json:"grid_height"`
	MinAgents       int     `json:"min_agents"`
	MaxAgents       int     `json:"max_agents"`
	MaxDifficulty   float64 `json:"max_difficulty"`
	LearningRate    float64 `json:"learning_rate"`
	BoundaryPolicy  string  `json:"boundary_policy"`
	FinalPopulation int     `json:"final_population"`
	PeakLineage     int     `json:"peak_lineage"`
}

// SampleRecord is a frozen copy of one agent taken at a given tick for later replay.
type SampleRecord struct {
	VersionedRecord
	ID      string        `json:"id"`
	RunID   string        `json:"run_id"`
	Tick    int           `json:"tick"`
	Agent   AgentRecord   `json:"agent"`
	Network NetworkRecord `json:"network"`
}
