package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"neurogrid/internal/agent"
	"neurogrid/internal/evo"
	"neurogrid/internal/sim"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "neurogrid.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileConfigMapsSections(t *testing.T) {
	path := writeConfig(t, `
; small arena
[simulation]
seed = 42
ticks = 250
grid_width = 20
grid_height = 12
min_agents = 4
max_agents = 40
direction = left
boundary_policy = parent_retires

[mutation]
add_node = 2
mutate_edge_weight = 8.5
`)
	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	s := cfg.Simulation
	if s.Seed != 42 || s.Ticks != 250 || s.GridWidth != 20 || s.GridHeight != 12 {
		t.Fatalf("unexpected simulation section: %+v", s)
	}
	defaults := sim.DefaultConfig()
	if s.CellSize != defaults.CellSize || s.LearningRate != defaults.LearningRate || s.SampleEvery != 100 {
		t.Fatalf("missing keys should keep defaults: %+v", s)
	}
	if cfg.Mutation["add_node"] != 2 || cfg.Mutation["mutate_edge_weight"] != 8.5 || len(cfg.Mutation) != 2 {
		t.Fatalf("unexpected mutation section: %+v", cfg.Mutation)
	}

	simCfg, err := cfg.simConfig()
	if err != nil {
		t.Fatalf("sim config: %v", err)
	}
	if simCfg.Direction != agent.Left || simCfg.BoundaryPolicy != sim.ParentRetires || simCfg.MaxAgents != 40 {
		t.Fatalf("unexpected sim config: %+v", simCfg)
	}
	if len(simCfg.MutationPolicy) != 2 || simCfg.MutationPolicy[0].Kind != evo.AddNode {
		t.Fatalf("unexpected mutation policy: %+v", simCfg.MutationPolicy)
	}
}

func TestLoadFileConfigErrors(t *testing.T) {
	if _, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Fatal("expected missing file error")
	}
	if _, err := loadFileConfig(writeConfig(t, "[mutation]\nadd_node = lots\n")); err == nil {
		t.Fatal("expected bad weight error")
	}
}

func TestSimulationFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, "[simulation]\nseed = 5\ngrid_width = 30\nmax_agents = 50\n")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := bindSimulationFlags(fs)
	if err := fs.Parse([]string{"-config", path, "-grid-width", "16", "-direction", "left"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := flags.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	s := cfg.Simulation
	if s.GridWidth != 16 || s.Direction != "left" {
		t.Fatalf("explicit flags should win: %+v", s)
	}
	if s.Seed != 5 || s.MaxAgents != 50 {
		t.Fatalf("file values should survive unset flags: %+v", s)
	}
}

func TestSimConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]func(*fileConfig){
		"direction": func(c *fileConfig) { c.Simulation.Direction = "up" },
		"policy":    func(c *fileConfig) { c.Simulation.BoundaryPolicy = "vanish" },
		"operator":  func(c *fileConfig) { c.Mutation["teleport"] = 1 },
		"bounds":    func(c *fileConfig) { c.Simulation.MaxAgents = 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := loadFileConfig("")
			if err != nil {
				t.Fatalf("defaults: %v", err)
			}
			mutate(&cfg)
			if _, err := cfg.simConfig(); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	cfg, _ := loadFileConfig("")
	cfg.Simulation.LearningRate = 1.5
	if _, err := cfg.simConfig(); !errors.Is(err, sim.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
