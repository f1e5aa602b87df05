package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	api "neurogrid/pkg/neurogrid"
)

var stderr io.Writer = os.Stderr

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "metrics":
		return runMetrics(ctx, args[1:])
	case "samples":
		return runSamples(ctx, args[1:])
	case "replay":
		return runReplay(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	case "watch":
		return runWatch(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: neurogridctl <run|runs|metrics|samples|replay|serve|watch> [flags]", msg)
}

// clientFlags are shared by every command that touches persisted runs.
type clientFlags struct {
	storeKind    *string
	dbPath       *string
	artifactsDir *string
	logLevel     *string
	logFormat    *string
}

func bindClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind:    fs.String("store", "memory", "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", "neurogrid.db", "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", "runs", "directory for per-run artifacts"),
		logLevel:     fs.String("log-level", "info", "log level: debug|info|warn|error"),
		logFormat:    fs.String("log-format", "text", "log format: text|json"),
	}
}

func (f clientFlags) logger() (*slog.Logger, error) {
	return newLogger(stderr, *f.logLevel, *f.logFormat)
}

func (f clientFlags) open(ctx context.Context) (*api.Client, error) {
	logger, err := f.logger()
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	client := bindClientFlags(fs)
	simFlags := bindSimulationFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := simFlags.resolve()
	if err != nil {
		return err
	}
	simCfg, err := cfg.simConfig()
	if err != nil {
		return err
	}
	if cfg.Simulation.Ticks <= 0 {
		return errors.New("ticks must be > 0")
	}

	c, err := client.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	summary, err := c.Run(ctx, api.RunRequest{
		Seed:        cfg.Simulation.Seed,
		Ticks:       cfg.Simulation.Ticks,
		SampleEvery: cfg.Simulation.SampleEvery,
		Config:      simCfg,
	})
	if err != nil {
		return err
	}
	fmt.Printf("run_id=%s ticks=%d final_population=%d peak_lineage=%d samples=%d\n",
		summary.RunID, summary.Ticks, summary.FinalPopulation, summary.PeakLineage, summary.Samples)
	fmt.Printf("population_min=%d population_max=%d population_mean=%.2f births=%d deaths=%d respawns=%d difficulty_mean=%.4f\n",
		summary.Metrics.PopulationMin,
		summary.Metrics.PopulationMax,
		summary.Metrics.PopulationMean,
		summary.Metrics.Births,
		summary.Metrics.Deaths,
		summary.Metrics.Respawns,
		summary.Metrics.DifficultyMean,
	)
	fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	client := bindClientFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	c, err := client.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	runs, err := c.Runs(ctx, api.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(os.Stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s seed=%d ticks=%d boundary=%s final_population=%d peak_lineage=%d\n",
			r.RunID, r.CreatedAtUTC, r.Seed, r.Ticks, r.BoundaryPolicy, r.FinalPopulation, r.PeakLineage)
	}
	return nil
}

func runMetrics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	client := bindClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the latest run")
	limit := fs.Int("limit", 20, "last N ticks to show (0 shows all)")
	jsonOut := fs.Bool("json", false, "emit metrics as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := client.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	metrics, err := c.Metrics(ctx, api.MetricsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(os.Stdout, metrics)
	}
	for _, m := range metrics {
		fmt.Printf("tick=%d population=%d lineage=%d..%d peak_lineage=%d complexity=%d..%d difficulty=%.4f killers_per_move=%.4f births=%d deaths=%d respawns=%d\n",
			m.Tick, m.Population, m.LineageMin, m.LineageMax, m.PeakLineage, m.ComplexityMin, m.ComplexityMax,
			m.Difficulty, m.KillersPerMove, m.Births, m.Deaths, m.Respawns)
	}
	return nil
}

func runSamples(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	client := bindClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the latest run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := client.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	samples, err := c.Samples(ctx, api.SamplesRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Println("no samples found")
		return nil
	}
	for _, s := range samples {
		fmt.Printf("sample_id=%s tick=%d agent_id=%s lineage=%d moves=%d complexity=%d\n",
			s.SampleID, s.Tick, s.AgentID, s.Lineage, s.Moves, s.Complexity)
	}
	return nil
}

func runReplay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	client := bindClientFlags(fs)
	sampleID := fs.String("sample-id", "", "sample id to replay")
	runID := fs.String("run-id", "", "replay the last sample of this run")
	latest := fs.Bool("latest", false, "replay the last sample of the latest run")
	ticks := fs.Int("ticks", 500, "maximum replay ticks")
	interval := fs.Int("interval", 6, "ticks between hazard walls")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := client.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	summary, err := c.Replay(ctx, api.ReplayRequest{
		SampleID: *sampleID,
		RunID:    *runID,
		Latest:   *latest,
		Ticks:    *ticks,
		Interval: *interval,
	})
	if err != nil {
		return err
	}
	fmt.Printf("sample_id=%s run_id=%s ticks=%d alive=%t crossings=%d moves=%d\n",
		summary.SampleID, summary.RunID, summary.Ticks, summary.Alive, summary.Crossings, summary.Moves)
	return nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
