package main

import (
	"flag"
	"fmt"

	"gopkg.in/ini.v1"

	"neurogrid/internal/agent"
	"neurogrid/internal/sim"
	api "neurogrid/pkg/neurogrid"
)

// simulationSection is the [simulation] section of a config file. Flag names
// match the keys with dashes instead of underscores.
type simulationSection struct {
	Seed                int64   `ini:"seed"`
	Ticks               int     `ini:"ticks"`
	SampleEvery         int     `ini:"sample_every"`
	GridWidth           int     `ini:"grid_width"`
	GridHeight          int     `ini:"grid_height"`
	CellSize            int     `ini:"cell_size"`
	MinAgents           int     `ini:"min_agents"`
	MaxAgents           int     `ini:"max_agents"`
	MaxDifficulty       float64 `ini:"max_difficulty"`
	LearningRate        float64 `ini:"learning_rate"`
	DifficultyWindow    int     `ini:"difficulty_window"`
	HistoryLimit        int     `ini:"history_limit"`
	Direction           string  `ini:"direction"`
	BoundaryPolicy      string  `ini:"boundary_policy"`
	MaxMutationAttempts int     `ini:"max_mutation_attempts"`
}

type fileConfig struct {
	Simulation simulationSection
	// Mutation holds operator weights from the [mutation] section keyed by
	// operator name.
	Mutation map[string]float64
}

func defaultSimulationSection() simulationSection {
	cfg := sim.DefaultConfig()
	return simulationSection{
		Seed:                1,
		Ticks:               1000,
		SampleEvery:         100,
		GridWidth:           cfg.GridWidth,
		GridHeight:          cfg.GridHeight,
		CellSize:            cfg.CellSize,
		MinAgents:           cfg.MinAgents,
		MaxAgents:           cfg.MaxAgents,
		MaxDifficulty:       cfg.MaxDifficulty,
		LearningRate:        cfg.LearningRate,
		DifficultyWindow:    cfg.DifficultyWindow,
		HistoryLimit:        cfg.HistoryLimit,
		Direction:           cfg.Direction.String(),
		BoundaryPolicy:      cfg.BoundaryPolicy.String(),
		MaxMutationAttempts: cfg.MaxMutationAttempts,
	}
}

// loadFileConfig reads path over the defaults. Keys missing from the file
// keep their default value. An empty path yields the defaults.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := fileConfig{Simulation: defaultSimulationSection(), Mutation: map[string]float64{}}
	if path == "" {
		return cfg, nil
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to load config file '%s': %w", path, err)
	}
	if err := file.Section("simulation").MapTo(&cfg.Simulation); err != nil {
		return fileConfig{}, fmt.Errorf("failed to map [simulation] section: %w", err)
	}
	for _, key := range file.Section("mutation").Keys() {
		weight, err := key.Float64()
		if err != nil {
			return fileConfig{}, fmt.Errorf("config error: mutation weight %s: %w", key.Name(), err)
		}
		cfg.Mutation[key.Name()] = weight
	}
	return cfg, nil
}

// simulationFlags registers one flag per [simulation] key on fs.
type simulationFlags struct {
	fs     *flag.FlagSet
	config *string
	values simulationSection
}

func bindSimulationFlags(fs *flag.FlagSet) *simulationFlags {
	f := &simulationFlags{fs: fs, values: defaultSimulationSection()}
	v := &f.values
	f.config = fs.String("config", "", "optional INI config file with [simulation] and [mutation] sections")
	fs.Int64Var(&v.Seed, "seed", v.Seed, "rng seed")
	fs.IntVar(&v.Ticks, "ticks", v.Ticks, "ticks to simulate")
	fs.IntVar(&v.SampleEvery, "sample-every", v.SampleEvery, "freeze the most evolved agent every N ticks (negative disables)")
	fs.IntVar(&v.GridWidth, "grid-width", v.GridWidth, "grid width in cells")
	fs.IntVar(&v.GridHeight, "grid-height", v.GridHeight, "grid height in cells")
	fs.IntVar(&v.CellSize, "cell-size", v.CellSize, "cell size in pixels")
	fs.IntVar(&v.MinAgents, "min-agents", v.MinAgents, "population floor")
	fs.IntVar(&v.MaxAgents, "max-agents", v.MaxAgents, "population ceiling")
	fs.Float64Var(&v.MaxDifficulty, "max-difficulty", v.MaxDifficulty, "hazard spawn rate at the population ceiling")
	fs.Float64Var(&v.LearningRate, "learning-rate", v.LearningRate, "mutation perturbation scale in (0,1)")
	fs.IntVar(&v.DifficultyWindow, "difficulty-window", v.DifficultyWindow, "ticks averaged into the hazard spawn rate")
	fs.IntVar(&v.HistoryLimit, "history-limit", v.HistoryLimit, "tick metrics kept in memory")
	fs.StringVar(&v.Direction, "direction", v.Direction, "agent travel direction: right|left")
	fs.StringVar(&v.BoundaryPolicy, "boundary-policy", v.BoundaryPolicy, "parent after reaching the goal: parent_continues|parent_retires")
	fs.IntVar(&v.MaxMutationAttempts, "max-mutation-attempts", v.MaxMutationAttempts, "mutation retries before falling back")
	return f
}

// resolve loads the config file and lets explicitly set flags override it.
func (f *simulationFlags) resolve() (fileConfig, error) {
	cfg, err := loadFileConfig(*f.config)
	if err != nil {
		return fileConfig{}, err
	}
	src, dst := f.values, &cfg.Simulation
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "seed":
			dst.Seed = src.Seed
		case "ticks":
			dst.Ticks = src.Ticks
		case "sample-every":
			dst.SampleEvery = src.SampleEvery
		case "grid-width":
			dst.GridWidth = src.GridWidth
		case "grid-height":
			dst.GridHeight = src.GridHeight
		case "cell-size":
			dst.CellSize = src.CellSize
		case "min-agents":
			dst.MinAgents = src.MinAgents
		case "max-agents":
			dst.MaxAgents = src.MaxAgents
		case "max-difficulty":
			dst.MaxDifficulty = src.MaxDifficulty
		case "learning-rate":
			dst.LearningRate = src.LearningRate
		case "difficulty-window":
			dst.DifficultyWindow = src.DifficultyWindow
		case "history-limit":
			dst.HistoryLimit = src.HistoryLimit
		case "direction":
			dst.Direction = src.Direction
		case "boundary-policy":
			dst.BoundaryPolicy = src.BoundaryPolicy
		case "max-mutation-attempts":
			dst.MaxMutationAttempts = src.MaxMutationAttempts
		}
	})
	return cfg, nil
}

// simConfig turns a resolved file config into a validated simulation config.
func (c fileConfig) simConfig() (sim.Config, error) {
	s := c.Simulation
	direction, err := agent.ParseDirection(s.Direction)
	if err != nil {
		return sim.Config{}, err
	}
	policy, err := sim.ParseBoundaryPolicy(s.BoundaryPolicy)
	if err != nil {
		return sim.Config{}, err
	}
	mutation, err := api.MutationPolicy(c.Mutation)
	if err != nil {
		return sim.Config{}, err
	}

	cfg := sim.DefaultConfig()
	cfg.GridWidth = s.GridWidth
	cfg.GridHeight = s.GridHeight
	cfg.CellSize = s.CellSize
	cfg.MinAgents = s.MinAgents
	cfg.MaxAgents = s.MaxAgents
	cfg.MaxDifficulty = s.MaxDifficulty
	cfg.LearningRate = s.LearningRate
	cfg.DifficultyWindow = s.DifficultyWindow
	cfg.HistoryLimit = s.HistoryLimit
	cfg.Direction = direction
	cfg.BoundaryPolicy = policy
	cfg.MutationPolicy = mutation
	cfg.MaxMutationAttempts = s.MaxMutationAttempts
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}
