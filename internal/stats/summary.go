package stats

import "neurogrid/internal/model"

type MetricsSummary struct {
	Ticks          int     `json:"ticks"`
	FirstTick      int     `json:"first_tick"`
	LastTick       int     `json:"last_tick"`
	PopulationMin  int     `json:"population_min"`
	PopulationMax  int     `json:"population_max"`
	PopulationMean float64 `json:"population_mean"`
	PeakLineage    int     `json:"peak_lineage"`
	ComplexityMax  int     `json:"complexity_max"`
	DifficultyMean float64 `json:"difficulty_mean"`
	Births         int     `json:"births"`
	Deaths         int     `json:"deaths"`
	Respawns       int     `json:"respawns"`
}

func SummarizeMetrics(metrics []model.TickMetrics) MetricsSummary {
	if len(metrics) == 0 {
		return MetricsSummary{}
	}
	summary := MetricsSummary{
		Ticks:         len(metrics),
		FirstTick:     metrics[0].Tick,
		LastTick:      metrics[len(metrics)-1].Tick,
		PopulationMin: metrics[0].Population,
		PopulationMax: metrics[0].Population,
	}
	population, difficulty := 0, 0.0
	for _, m := range metrics {
		population += m.Population
		difficulty += m.Difficulty
		summary.PopulationMin = min(summary.PopulationMin, m.Population)
		summary.PopulationMax = max(summary.PopulationMax, m.Population)
		summary.PeakLineage = max(summary.PeakLineage, m.PeakLineage, m.LineageMax)
		summary.ComplexityMax = max(summary.ComplexityMax, m.ComplexityMax)
		summary.Births += m.Births
		summary.Deaths += m.Deaths
		summary.Respawns += m.Respawns
	}
	summary.PopulationMean = float64(population) / float64(len(metrics))
	summary.DifficultyMean = difficulty / float64(len(metrics))
	return summary
}
