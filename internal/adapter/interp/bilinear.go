// Package interp samples regular latitude/longitude fields between grid nodes.
package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.ngs.io/waves-api/internal/domain"
)

var (
	// ErrOutside is returned when the sample point lies outside the grid.
	ErrOutside = errors.New("point outside grid")
	// ErrMissing is returned when a surrounding node holds no value (NaN).
	ErrMissing = errors.New("missing node value")
)

// Cell is one rectangle of a regular grid with its four corner values.
type Cell struct {
	Lon0, Lon1 float64
	Lat0, Lat1 float64

	// V00 at (Lon0, Lat0), V10 at (Lon1, Lat0),
	// V01 at (Lon0, Lat1), V11 at (Lon1, Lat1).
	V00, V10, V01, V11 float64
}

// Bilinear interpolates inside a cell:
//
//	f(x,y) ≈ (1-t)(1-u)f00 + t(1-u)f10 + (1-t)u f01 + tu f11
//
// where t = (lon - lon0) / (lon1 - lon0) and u = (lat - lat0) / (lat1 - lat0).
// Degenerate cells (a single row or column) reduce to linear interpolation.
func Bilinear(c Cell, lon, lat float64) (float64, error) {
	for _, v := range [...]float64{c.V00, c.V10, c.V01, c.V11} {
		if math.IsNaN(v) {
			return math.NaN(), ErrMissing
		}
	}

	const epsilon = 1e-9
	if lon < math.Min(c.Lon0, c.Lon1)-epsilon || lon > math.Max(c.Lon0, c.Lon1)+epsilon {
		return 0, fmt.Errorf("%w: lon %.6f not in [%.6f, %.6f]", ErrOutside, lon, c.Lon0, c.Lon1)
	}
	if lat < math.Min(c.Lat0, c.Lat1)-epsilon || lat > math.Max(c.Lat0, c.Lat1)+epsilon {
		return 0, fmt.Errorf("%w: lat %.6f not in [%.6f, %.6f]", ErrOutside, lat, c.Lat0, c.Lat1)
	}

	t := fraction(lon, c.Lon0, c.Lon1)
	u := fraction(lat, c.Lat0, c.Lat1)

	return (1-t)*(1-u)*c.V00 +
		t*(1-u)*c.V10 +
		(1-t)*u*c.V01 +
		t*u*c.V11, nil
}

// fraction returns the clamped position of x between a and b.
func fraction(x, a, b float64) float64 {
	if b == a {
		return 0
	}
	f := (x - a) / (b - a)
	return math.Max(0, math.Min(1, f))
}

// Grid is a single regular field. Values[i][j] is at (Lat[i], Lon[j]); both axes increase.
type Grid struct {
	Lat    []float64
	Lon    []float64
	Values [][]float64
}

// FromSnapshot wraps one time step of a field stack without copying.
func FromSnapshot(s domain.FieldSnapshot) *Grid {
	return &Grid{Lat: s.Lat, Lon: s.Lon, Values: s.Values}
}

// Validate checks that the grid is fully populated and its axes increase.
func (g *Grid) Validate() error {
	if len(g.Lat) == 0 || len(g.Lon) == 0 {
		return fmt.Errorf("%w: empty axis", domain.ErrInvalidGrid)
	}
	if len(g.Values) != len(g.Lat) {
		return fmt.Errorf("%w: %d rows for %d latitudes", domain.ErrInvalidGrid, len(g.Values), len(g.Lat))
	}
	for i, row := range g.Values {
		if len(row) != len(g.Lon) {
			return fmt.Errorf("%w: row %d has %d values, expected %d", domain.ErrInvalidGrid, i, len(row), len(g.Lon))
		}
	}
	if !sort.SliceIsSorted(g.Lat, func(a, b int) bool { return g.Lat[a] < g.Lat[b] }) {
		return fmt.Errorf("%w: latitudes must increase", domain.ErrInvalidGrid)
	}
	if !sort.SliceIsSorted(g.Lon, func(a, b int) bool { return g.Lon[a] < g.Lon[b] }) {
		return fmt.Errorf("%w: longitudes must increase", domain.ErrInvalidGrid)
	}
	return nil
}

// bracket returns i such that axis[i] <= x <= axis[i+1], clamping to the last
// interval. Single-node axes return 0 when x matches the node.
func bracket(axis []float64, x float64) (int, bool) {
	n := len(axis)
	const epsilon = 1e-9
	if n == 0 || x < axis[0]-epsilon || x > axis[n-1]+epsilon {
		return 0, false
	}
	if n == 1 {
		return 0, true
	}
	k := sort.SearchFloat64s(axis, x)
	switch {
	case k == 0:
		return 0, true
	case k >= n-1:
		return n - 2, true
	}
	return k - 1, true
}

// At samples the grid at (lat, lon). Longitudes outside the axis range are
// retried on the other 0–360 / ±180 convention before giving up.
func (g *Grid) At(lat, lon float64) (float64, error) {
	if len(g.Lat) == 0 || len(g.Lon) == 0 {
		return 0, fmt.Errorf("%w: empty axis", domain.ErrInvalidGrid)
	}
	i, ok := bracket(g.Lat, lat)
	if !ok {
		return 0, fmt.Errorf("%w: lat %.6f outside [%.6f, %.6f]", ErrOutside, lat, g.Lat[0], g.Lat[len(g.Lat)-1])
	}
	j, ok := bracket(g.Lon, lon)
	if !ok {
		alt := domain.NormalizeLon180(lon)
		if alt == lon {
			alt = domain.NormalizeLon360(lon)
		}
		if j, ok = bracket(g.Lon, alt); !ok {
			return 0, fmt.Errorf("%w: lon %.6f outside [%.6f, %.6f]", ErrOutside, lon, g.Lon[0], g.Lon[len(g.Lon)-1])
		}
		lon = alt
	}

	i1, j1 := i+1, j+1
	if i1 >= len(g.Lat) {
		i1 = i
	}
	if j1 >= len(g.Lon) {
		j1 = j
	}

	return Bilinear(Cell{
		Lon0: g.Lon[j], Lon1: g.Lon[j1],
		Lat0: g.Lat[i], Lat1: g.Lat[i1],
		V00: g.Values[i][j],
		V10: g.Values[i][j1],
		V01: g.Values[i1][j],
		V11: g.Values[i1][j1],
	}, lon, lat)
}
