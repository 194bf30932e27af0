package interp

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.ngs.io/waves-api/internal/domain"
)

// TestBilinear_CenterPoint checks the cell center is the mean of the corners.
func TestBilinear_CenterPoint(t *testing.T) {
	cell := Cell{
		Lon0: 0.0, Lon1: 2.0,
		Lat0: 0.0, Lat1: 2.0,
		V00: 1.0, V10: 3.0,
		V01: 5.0, V11: 7.0,
	}

	// t = u = 0.5, so the result is 0.25 * (1 + 3 + 5 + 7) = 4.
	result, err := Bilinear(cell, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(result-4.0) > 1e-9 {
		t.Errorf("Center point: expected 4.0, got %.10f", result)
	}
}

// TestBilinear_CornerPoints checks corners return exact node values.
func TestBilinear_CornerPoints(t *testing.T) {
	cell := Cell{
		Lon0: -44.0, Lon1: -43.5,
		Lat0: -23.5, Lat1: -23.0,
		V00: 1.0, V10: 2.0,
		V01: 3.0, V11: 4.0,
	}

	tests := []struct {
		name     string
		lon, lat float64
		expected float64
	}{
		{"south-west", -44.0, -23.5, 1.0},
		{"south-east", -43.5, -23.5, 2.0},
		{"north-west", -44.0, -23.0, 3.0},
		{"north-east", -43.5, -23.0, 4.0},
	}

	for _, tt := range tests {
		result, err := Bilinear(cell, tt.lon, tt.lat)
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", tt.name, err)
		}
		if math.Abs(result-tt.expected) > 1e-9 {
			t.Errorf("%s corner: expected %.10f, got %.10f", tt.name, tt.expected, result)
		}
	}
}

// TestBilinear_OutOfBounds checks points outside the cell are rejected.
func TestBilinear_OutOfBounds(t *testing.T) {
	cell := Cell{
		Lon0: 0.0, Lon1: 10.0,
		Lat0: 0.0, Lat1: 10.0,
		V00: 1.0, V10: 2.0,
		V01: 3.0, V11: 4.0,
	}

	tests := []struct {
		name     string
		lon, lat float64
	}{
		{"lon too small", -1.0, 5.0},
		{"lon too large", 11.0, 5.0},
		{"lat too small", 5.0, -1.0},
		{"lat too large", 5.0, 11.0},
	}

	for _, tt := range tests {
		_, err := Bilinear(cell, tt.lon, tt.lat)
		if !errors.Is(err, ErrOutside) {
			t.Errorf("%s: expected ErrOutside, got %v", tt.name, err)
		}
	}
}

func TestBilinear_MissingCorner(t *testing.T) {
	cell := Cell{
		Lon0: 0, Lon1: 1, Lat0: 0, Lat1: 1,
		V00: 1, V10: math.NaN(), V01: 1, V11: 1,
	}
	if _, err := Bilinear(cell, 0.5, 0.5); !errors.Is(err, ErrMissing) {
		t.Errorf("expected ErrMissing, got %v", err)
	}
}

// TestGrid_At samples a 3x3 field at nodes and between them.
func TestGrid_At(t *testing.T) {
	grid := &Grid{
		Lat: []float64{-24.0, -23.5, -23.0},
		Lon: []float64{-44.0, -43.5, -43.0},
		Values: [][]float64{
			{1.0, 2.0, 3.0}, // lat=-24
			{4.0, 5.0, 6.0}, // lat=-23.5
			{7.0, 8.0, 9.0}, // lat=-23
		},
	}
	if err := grid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		lat, lon float64
		expected float64
	}{
		{-24.0, -44.0, 1.0},
		{-24.0, -43.0, 3.0},
		{-23.5, -43.5, 5.0},
		{-23.0, -43.0, 9.0},
		{-23.75, -43.75, 3.0},
		{-23.25, -43.25, 7.0},
		{-23.0, 317.0, 9.0}, // 0-360 longitude
	}

	for _, tt := range tests {
		result, err := grid.At(tt.lat, tt.lon)
		if err != nil {
			t.Fatalf("Unexpected error at (%.2f, %.2f): %v", tt.lat, tt.lon, err)
		}
		if math.Abs(result-tt.expected) > 1e-9 {
			t.Errorf("At (%.2f, %.2f): expected %.10f, got %.10f", tt.lat, tt.lon, tt.expected, result)
		}
	}

	if _, err := grid.At(-25, -43.5); !errors.Is(err, ErrOutside) {
		t.Errorf("expected ErrOutside south of the grid, got %v", err)
	}
	if _, err := grid.At(-23.5, -40); !errors.Is(err, ErrOutside) {
		t.Errorf("expected ErrOutside east of the grid, got %v", err)
	}
}

func TestGrid_SingleRow(t *testing.T) {
	grid := &Grid{
		Lat:    []float64{-23.0},
		Lon:    []float64{-44.0, -43.0},
		Values: [][]float64{{2.0, 4.0}},
	}
	got, err := grid.At(-23.0, -43.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(got-3.0) > 1e-9 {
		t.Errorf("expected 3.0, got %v", got)
	}
}

func TestFromSnapshot(t *testing.T) {
	snap := domain.FieldSnapshot{
		Time:   time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
		Lat:    []float64{0, 1},
		Lon:    []float64{0, 1},
		Values: [][]float64{{0, 1}, {1, 2}},
	}
	got, err := FromSnapshot(snap).At(0.5, 0.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected 1.0, got %v", got)
	}
}

// TestGrid_Validate tests grid validation.
func TestGrid_Validate(t *testing.T) {
	tests := []struct {
		name    string
		grid    *Grid
		wantErr bool
	}{
		{
			name: "valid grid",
			grid: &Grid{
				Lon:    []float64{0.0, 1.0, 2.0},
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{1, 2, 3}, {4, 5, 6}},
			},
		},
		{
			name: "empty lon axis",
			grid: &Grid{
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{}, {}},
			},
			wantErr: true,
		},
		{
			name: "mismatched row count",
			grid: &Grid{
				Lon:    []float64{0.0, 1.0},
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{1, 2}},
			},
			wantErr: true,
		},
		{
			name: "mismatched column count",
			grid: &Grid{
				Lon:    []float64{0.0, 1.0, 2.0},
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{1, 2}, {3, 4}},
			},
			wantErr: true,
		},
		{
			name: "decreasing latitude",
			grid: &Grid{
				Lon:    []float64{0.0, 1.0},
				Lat:    []float64{1.0, 0.0},
				Values: [][]float64{{1, 2}, {3, 4}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
