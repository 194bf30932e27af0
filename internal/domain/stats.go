package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ComparisonStats summarizes how a model series (e.g. ERA5) agrees with observations.
type ComparisonStats struct {
	N            int     `json:"n"`
	ObsMean      float64 `json:"obs_mean"`
	ModMean      float64 `json:"mod_mean"`
	ObsStd       float64 `json:"obs_std"`
	ModStd       float64 `json:"mod_std"`
	Bias         float64 `json:"bias"` // mean(mod - obs)
	RMSE         float64 `json:"rmse"`
	ScatterIndex float64 `json:"scatter_index"` // RMSE / ObsMean
	Correlation  float64 `json:"correlation"`
	Slope        float64 `json:"slope"`
	Intercept    float64 `json:"intercept"`
	RSquared     float64 `json:"r_squared"`
}

// Compare computes agreement statistics between paired observed and modeled values.
// Standard deviations are population (1/N) values.
func Compare(observed, modeled []float64) (ComparisonStats, error) {
	if len(observed) != len(modeled) {
		return ComparisonStats{}, fmt.Errorf("length mismatch: %d observed, %d modeled", len(observed), len(modeled))
	}
	if len(observed) < 2 {
		return ComparisonStats{}, fmt.Errorf("%w: need at least 2 pairs, got %d", ErrNoData, len(observed))
	}

	s := ComparisonStats{
		N:       len(observed),
		ObsMean: stat.Mean(observed, nil),
		ModMean: stat.Mean(modeled, nil),
		ObsStd:  math.Sqrt(stat.Moment(2, observed, nil)),
		ModStd:  math.Sqrt(stat.Moment(2, modeled, nil)),
	}

	var sumDiff, sumSq float64
	for i := range observed {
		d := modeled[i] - observed[i]
		sumDiff += d
		sumSq += d * d
	}
	n := float64(s.N)
	s.Bias = sumDiff / n
	s.RMSE = math.Sqrt(sumSq / n)
	if s.ObsMean != 0 {
		s.ScatterIndex = s.RMSE / s.ObsMean
	}

	// Correlation and regression are undefined for constant series.
	if s.ObsStd > 0 && s.ModStd > 0 {
		s.Correlation = stat.Correlation(observed, modeled, nil)
		s.Intercept, s.Slope = stat.LinearRegression(observed, modeled, nil, false)
		s.RSquared = s.Correlation * s.Correlation
	}

	return s, nil
}
