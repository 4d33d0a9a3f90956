package pipeline

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AreaStats summarizes the areas of the regions drawn in a run.
type AreaStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
}

// SummarizeAreas computes AreaStats over every drawn region in results.
func SummarizeAreas(results []Result) AreaStats {
	var areas []float64
	for _, r := range results {
		for _, m := range r.Masks {
			if m.Region != nil {
				areas = append(areas, m.Region.Area)
			}
		}
	}
	if len(areas) == 0 {
		return AreaStats{}
	}

	sort.Float64s(areas)
	s := AreaStats{
		Count:  len(areas),
		Min:    floats.Min(areas),
		Max:    floats.Max(areas),
		Mean:   stat.Mean(areas, nil),
		Median: stat.Quantile(0.5, stat.Empirical, areas, nil),
	}
	if len(areas) > 1 {
		s.StdDev = stat.StdDev(areas, nil)
	}
	return s
}
