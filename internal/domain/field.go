package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Observation is a single satellite measurement at an irregular location and time.
type Observation struct {
	Time     time.Time `json:"time"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Value    float64   `json:"value"`
	Source   string    `json:"source,omitempty"`   // Mission or instrument (e.g., "Jason-3").
	Variable string    `json:"variable,omitempty"` // Measured quantity (e.g., "VAVH").
}

// Valid reports whether the observation has usable coordinates and value.
// Longitudes are accepted on either the [-180, 180] or the [0, 360] axis.
func (o Observation) Valid() bool {
	if math.IsNaN(o.Lat) || math.IsNaN(o.Lon) || math.IsNaN(o.Value) {
		return false
	}
	if math.IsInf(o.Lat, 0) || math.IsInf(o.Lon, 0) || math.IsInf(o.Value, 0) {
		return false
	}
	if o.Lon < -180 || o.Lon > 360 {
		return false
	}
	return o.Lat >= -90 && o.Lat <= 90 && !o.Time.IsZero()
}

// FieldSnapshot is one time step of a gridded field.
// Values[i][j] corresponds to (Lat[i], Lon[j]).
type FieldSnapshot struct {
	Time   time.Time
	Lat    []float64
	Lon    []float64
	Values [][]float64
}

// FieldStack is a time-indexed stack of regular latitude/longitude grids,
// e.g. ERA5 significant wave height. Values[t][i][j] corresponds to
// (Times[t], Lat[i], Lon[j]). Both axes are strictly increasing and evenly
// spaced; longitudes are in [-180, 180]. Missing cells hold NaN.
type FieldStack struct {
	Variable string
	Units    string
	Lat      []float64
	Lon      []float64
	Times    []time.Time
	Values   [][][]float64
}

// axisTolerance is the relative spacing deviation tolerated on a regular axis.
// ERA5 axes stored as float32 drift by a few ulps per step.
const axisTolerance = 1e-3

// Validate checks that the stack is regular, monotonic and fully populated.
func (s *FieldStack) Validate() error {
	if len(s.Lat) < 1 || len(s.Lon) < 1 {
		return fmt.Errorf("%w: empty coordinate axis", ErrInvalidGrid)
	}
	if len(s.Times) == 0 {
		return fmt.Errorf("%w: no time steps", ErrInvalidGrid)
	}
	if err := checkRegularAxis("latitude", s.Lat); err != nil {
		return err
	}
	if err := checkRegularAxis("longitude", s.Lon); err != nil {
		return err
	}
	for i := 1; i < len(s.Times); i++ {
		if !s.Times[i].After(s.Times[i-1]) {
			return fmt.Errorf("%w: time steps must be strictly increasing (index %d)", ErrInvalidGrid, i)
		}
	}
	if len(s.Values) != len(s.Times) {
		return fmt.Errorf("%w: %d value slices for %d time steps", ErrInvalidGrid, len(s.Values), len(s.Times))
	}
	for t, grid := range s.Values {
		if len(grid) != len(s.Lat) {
			return fmt.Errorf("%w: step %d has %d rows, expected %d", ErrInvalidGrid, t, len(grid), len(s.Lat))
		}
		for i, row := range grid {
			if len(row) != len(s.Lon) {
				return fmt.Errorf("%w: step %d row %d has %d values, expected %d", ErrInvalidGrid, t, i, len(row), len(s.Lon))
			}
		}
	}
	return nil
}

func checkRegularAxis(name string, axis []float64) error {
	if len(axis) < 2 {
		return nil
	}
	step := axis[1] - axis[0]
	if step <= 0 {
		return fmt.Errorf("%w: %s axis must be strictly increasing", ErrInvalidGrid, name)
	}
	for i := 2; i < len(axis); i++ {
		d := axis[i] - axis[i-1]
		if d <= 0 {
			return fmt.Errorf("%w: %s axis must be strictly increasing", ErrInvalidGrid, name)
		}
		if math.Abs(d-step) > axisTolerance*step {
			return fmt.Errorf("%w: %s axis is not evenly spaced at index %d", ErrInvalidGrid, name, i)
		}
	}
	return nil
}

// Ascending returns the stack with both axes in increasing order. Stacks that
// are already ascending are returned as is; otherwise a reordered copy is made.
// ERA5 files store latitude from north to south.
func (s *FieldStack) Ascending() *FieldStack {
	flipLat := len(s.Lat) > 1 && s.Lat[0] > s.Lat[len(s.Lat)-1]
	flipLon := len(s.Lon) > 1 && s.Lon[0] > s.Lon[len(s.Lon)-1]
	if !flipLat && !flipLon {
		return s
	}

	out := &FieldStack{
		Variable: s.Variable,
		Units:    s.Units,
		Lat:      reversedIf(s.Lat, flipLat),
		Lon:      reversedIf(s.Lon, flipLon),
		Times:    s.Times,
		Values:   make([][][]float64, len(s.Values)),
	}
	nLat, nLon := len(s.Lat), len(s.Lon)
	for t, grid := range s.Values {
		g := make([][]float64, len(grid))
		for i := range grid {
			src := i
			if flipLat {
				src = nLat - 1 - i
			}
			row := make([]float64, len(grid[src]))
			for j := range row {
				col := j
				if flipLon {
					col = nLon - 1 - j
				}
				row[j] = grid[src][col]
			}
			g[i] = row
		}
		out.Values[t] = g
	}
	return out
}

func reversedIf(axis []float64, flip bool) []float64 {
	out := make([]float64, len(axis))
	for i, v := range axis {
		if flip {
			out[len(axis)-1-i] = v
		} else {
			out[i] = v
		}
	}
	return out
}

// NearestTime returns the index of the time step closest to t and the absolute offset.
// Ties go to the earlier step.
func (s *FieldStack) NearestTime(t time.Time) (int, time.Duration) {
	n := len(s.Times)
	if n == 0 {
		return -1, 0
	}
	k := sort.Search(n, func(i int) bool { return !s.Times[i].Before(t) })
	switch {
	case k == 0:
		return 0, absDuration(s.Times[0].Sub(t))
	case k == n:
		return n - 1, absDuration(t.Sub(s.Times[n-1]))
	}
	before := absDuration(t.Sub(s.Times[k-1]))
	after := absDuration(s.Times[k].Sub(t))
	if after < before {
		return k, after
	}
	return k - 1, before
}

// Snapshot returns the grid at time index t. The snapshot shares memory with the stack.
func (s *FieldStack) Snapshot(t int) FieldSnapshot {
	return FieldSnapshot{
		Time:   s.Times[t],
		Lat:    s.Lat,
		Lon:    s.Lon,
		Values: s.Values[t],
	}
}

// Cells returns the number of grid cells per time step.
func (s *FieldStack) Cells() int {
	return len(s.Lat) * len(s.Lon)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// MatchedPair links an observation to the grid cell and time step it was matched against.
type MatchedPair struct {
	Observation Observation   `json:"observation"`
	GridTime    time.Time     `json:"grid_time"`
	GridLat     float64       `json:"grid_lat"`
	GridLon     float64       `json:"grid_lon"`
	GridValue   float64       `json:"grid_value"`
	DistanceKm  float64       `json:"distance_km"`
	TimeOffset  time.Duration `json:"-"`
}

// TimeOffsetHours returns the absolute observation-to-grid time offset in hours.
func (p MatchedPair) TimeOffsetHours() float64 {
	return absDuration(p.TimeOffset).Hours()
}
