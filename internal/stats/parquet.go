package stats

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"neurogrid/internal/model"
)

const metricsSchema = "tick_metrics_v1"

// MetricsRow is the Parquet layout of one tick of metrics.
type MetricsRow struct {
	Tick           int64   `parquet:"tick"`
	Population     int32   `parquet:"population"`
	LineageMin     int32   `parquet:"lineage_min"`
	LineageMax     int32   `parquet:"lineage_max"`
	PeakLineage    int32   `parquet:"peak_lineage"`
	ComplexityMin  int32   `parquet:"complexity_min"`
	ComplexityMax  int32   `parquet:"complexity_max"`
	Difficulty     float64 `parquet:"difficulty"`
	KillersPerMove float64 `parquet:"killers_per_move"`
	Births         int32   `parquet:"births"`
	Deaths         int32   `parquet:"deaths"`
	Respawns       int32   `parquet:"respawns"`
}

func toRow(m model.TickMetrics) MetricsRow {
	return MetricsRow{
		Tick:           int64(m.Tick),
		Population:     int32(m.Population),
		LineageMin:     int32(m.LineageMin),
		LineageMax:     int32(m.LineageMax),
		PeakLineage:    int32(m.PeakLineage),
		ComplexityMin:  int32(m.ComplexityMin),
		ComplexityMax:  int32(m.ComplexityMax),
		Difficulty:     m.Difficulty,
		KillersPerMove: m.KillersPerMove,
		Births:         int32(m.Births),
		Deaths:         int32(m.Deaths),
		Respawns:       int32(m.Respawns),
	}
}

func fromRow(r MetricsRow) model.TickMetrics {
	return model.TickMetrics{
		Tick:           int(r.Tick),
		Population:     int(r.Population),
		LineageMin:     int(r.LineageMin),
		LineageMax:     int(r.LineageMax),
		PeakLineage:    int(r.PeakLineage),
		ComplexityMin:  int(r.ComplexityMin),
		ComplexityMax:  int(r.ComplexityMax),
		Difficulty:     r.Difficulty,
		KillersPerMove: r.KillersPerMove,
		Births:         int(r.Births),
		Deaths:         int(r.Deaths),
		Respawns:       int(r.Respawns),
	}
}

// WriteMetricsParquet writes metrics to a temp file and renames it into place.
func WriteMetricsParquet(outPath string, metrics []model.TickMetrics) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	rows := make([]MetricsRow, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, toRow(m))
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", metricsSchema),
	); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func ReadMetricsParquet(path string) ([]model.TickMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, err
	}
	if schema, ok := pf.Lookup("schema"); ok && schema != metricsSchema {
		return nil, fmt.Errorf("unexpected parquet schema %q", schema)
	}

	reader := parquet.NewGenericReader[MetricsRow](pf)
	defer reader.Close()

	metrics := make([]model.TickMetrics, 0, reader.NumRows())
	buf := make([]MetricsRow, 256)
	for {
		n, err := reader.Read(buf)
		for _, row := range buf[:n] {
			metrics = append(metrics, fromRow(row))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	return metrics, nil
}
