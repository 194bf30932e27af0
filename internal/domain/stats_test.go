package domain

import (
	"errors"
	"math"
	"testing"
)

func TestCompare_PerfectLinear(t *testing.T) {
	obs := []float64{1, 2, 3, 4}
	mod := []float64{2, 4, 6, 8}

	s, err := Compare(obs, mod)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	checks := []struct {
		name          string
		got, expected float64
	}{
		{"obs mean", s.ObsMean, 2.5},
		{"mod mean", s.ModMean, 5.0},
		{"obs std", s.ObsStd, math.Sqrt(1.25)},
		{"mod std", s.ModStd, math.Sqrt(5.0)},
		{"bias", s.Bias, 2.5},
		{"rmse", s.RMSE, math.Sqrt(7.5)},
		{"scatter index", s.ScatterIndex, math.Sqrt(7.5) / 2.5},
		{"correlation", s.Correlation, 1.0},
		{"slope", s.Slope, 2.0},
		{"intercept", s.Intercept, 0.0},
		{"r squared", s.RSquared, 1.0},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.expected) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", c.name, c.expected, c.got)
		}
	}
	if s.N != 4 {
		t.Errorf("N: expected 4, got %d", s.N)
	}
}

func TestCompare_Errors(t *testing.T) {
	if _, err := Compare([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected error for length mismatch")
	}
	_, err := Compare([]float64{1}, []float64{1})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for a single pair, got %v", err)
	}
}

func TestCompare_ConstantSeries(t *testing.T) {
	s, err := Compare([]float64{2, 2, 2}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if s.Correlation != 0 || s.Slope != 0 || s.RSquared != 0 {
		t.Errorf("constant observations should leave correlation unset, got %+v", s)
	}
	if math.Abs(s.Bias) > 1e-12 {
		t.Errorf("bias: expected 0, got %v", s.Bias)
	}
}
