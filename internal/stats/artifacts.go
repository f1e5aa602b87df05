// Package stats writes per-run artifacts: the run configuration, a metrics
// summary and the tick metrics table as CSV and Parquet.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"neurogrid/internal/model"
)

const (
	configFile  = "config.json"
	summaryFile = "summary.json"
	csvFile     = "metrics.csv"
	parquetFile = "metrics.parquet"
)

type RunConfig struct {
	RunID               string             `json:"run_id"`
	CreatedAtUTC        string             `json:"created_at_utc"`
	Seed                int64              `json:"seed"`
	Ticks               int                `json:"ticks"`
	GridWidth           int                `json:"grid_width"`
	GridHeight          int                `json:"grid_height"`
	CellSize            int                `json:"cell_size"`
	MinAgents           int                `json:"min_agents"`
	MaxAgents           int                `json:"max_agents"`
	MaxDifficulty       float64            `json:"max_difficulty"`
	LearningRate        float64            `json:"learning_rate"`
	DifficultyWindow    int                `json:"difficulty_window"`
	HistoryLimit        int                `json:"history_limit"`
	Direction           string             `json:"direction"`
	BoundaryPolicy      string             `json:"boundary_policy"`
	MutationPolicy      map[string]float64 `json:"mutation_policy,omitempty"`
	MaxMutationAttempts int                `json:"max_mutation_attempts"`
	SampleEvery         int                `json:"sample_every,omitempty"`
}

type RunArtifacts struct {
	Config  RunConfig
	Metrics []model.TickMetrics
}

// WriteRunArtifacts writes every artifact of a run under baseDir/<run id> and
// returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), SummarizeMetrics(artifacts.Metrics)); err != nil {
		return "", err
	}
	if err := WriteMetricsCSV(filepath.Join(runDir, csvFile), artifacts.Metrics); err != nil {
		return "", err
	}
	if err := WriteMetricsParquet(filepath.Join(runDir, parquetFile), artifacts.Metrics); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadSummary(baseDir, runID string) (MetricsSummary, bool, error) {
	var summary MetricsSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

// MetricsFiles returns the CSV and Parquet paths of a run.
func MetricsFiles(baseDir, runID string) (csvPath, parquetPath string) {
	dir := filepath.Join(baseDir, runID)
	return filepath.Join(dir, csvFile), filepath.Join(dir, parquetFile)
}

var csvHeader = []string{
	"tick", "population", "lineage_min", "lineage_max", "peak_lineage",
	"complexity_min", "complexity_max", "difficulty", "killers_per_move",
	"births", "deaths", "respawns",
}

func WriteMetricsCSV(path string, metrics []model.TickMetrics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, m := range metrics {
		if err := writer.Write([]string{
			strconv.Itoa(m.Tick),
			strconv.Itoa(m.Population),
			strconv.Itoa(m.LineageMin),
			strconv.Itoa(m.LineageMax),
			strconv.Itoa(m.PeakLineage),
			strconv.Itoa(m.ComplexityMin),
			strconv.Itoa(m.ComplexityMax),
			strconv.FormatFloat(m.Difficulty, 'f', -1, 64),
			strconv.FormatFloat(m.KillersPerMove, 'f', -1, 64),
			strconv.Itoa(m.Births),
			strconv.Itoa(m.Deaths),
			strconv.Itoa(m.Respawns),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadMetricsCSV(path string) ([]model.TickMetrics, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []model.TickMetrics{}, nil
		}
		return nil, err
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("metrics header must have %d columns, got %d", len(csvHeader), len(header))
	}

	var metrics []model.TickMetrics
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		m, err := parseMetricsRow(record)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func parseMetricsRow(record []string) (model.TickMetrics, error) {
	ints := make([]int, 0, 10)
	floats := make([]float64, 0, 2)
	for i, field := range record {
		if i == 7 || i == 8 {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return model.TickMetrics{}, fmt.Errorf("column %s: %w", csvHeader[i], err)
			}
			floats = append(floats, v)
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return model.TickMetrics{}, fmt.Errorf("column %s: %w", csvHeader[i], err)
		}
		ints = append(ints, v)
	}
	return model.TickMetrics{
		Tick:           ints[0],
		Population:     ints[1],
		LineageMin:     ints[2],
		LineageMax:     ints[3],
		PeakLineage:    ints[4],
		ComplexityMin:  ints[5],
		ComplexityMax:  ints[6],
		Difficulty:     floats[0],
		KillersPerMove: floats[1],
		Births:         ints[7],
		Deaths:         ints[8],
		Respawns:       ints[9],
	}, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}
