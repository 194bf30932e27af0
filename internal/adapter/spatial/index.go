// Package spatial provides nearest-neighbour lookup over geographic points.
//
// Points are embedded on the unit sphere so that Euclidean (chord) order equals
// great-circle order. Large point sets are searched with a gonum k-d tree; small
// ones with a linear scan.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"go.ngs.io/waves-api/internal/domain"
)

// DefaultBruteForceBelow is the point count under which a linear scan is used.
const DefaultBruteForceBelow = 256

// Point is an indexed geographic location. Row and Col identify the grid cell
// it was built from (Row indexes latitude, Col longitude); free-standing points
// leave them at their zero values or use Row as an identifier.
type Point struct {
	Lat float64
	Lon float64
	Row int
	Col int
}

// Index answers nearest-point queries.
type Index interface {
	// Nearest returns the closest point to (lat, lon) and its great-circle
	// distance in kilometers. ok is false when the index is empty.
	Nearest(lat, lon float64) (p Point, distanceKm float64, ok bool)
	// Len returns the number of indexed points.
	Len() int
}

// New builds an index over points. A k-d tree is used when there are at least
// bruteForceBelow points; bruteForceBelow <= 0 selects DefaultBruteForceBelow.
func New(points []Point, bruteForceBelow int) Index {
	if bruteForceBelow <= 0 {
		bruteForceBelow = DefaultBruteForceBelow
	}
	if len(points) < bruteForceBelow {
		return newLinear(points)
	}
	return newTree(points)
}

// GridPoints flattens a regular grid into points, row-major over (lat, lon).
func GridPoints(lat, lon []float64) []Point {
	points := make([]Point, 0, len(lat)*len(lon))
	for i, la := range lat {
		for j, lo := range lon {
			points = append(points, Point{Lat: la, Lon: domain.NormalizeLon180(lo), Row: i, Col: j})
		}
	}
	return points
}

// NewGrid indexes every cell of a regular grid.
func NewGrid(lat, lon []float64, bruteForceBelow int) Index {
	return New(GridPoints(lat, lon), bruteForceBelow)
}

// unitVector maps a latitude/longitude in degrees to a point on the unit sphere.
func unitVector(lat, lon float64) [3]float64 {
	phi := domain.Deg2Rad(lat)
	lambda := domain.Deg2Rad(lon)
	cosPhi := math.Cos(phi)
	return [3]float64{cosPhi * math.Cos(lambda), cosPhi * math.Sin(lambda), math.Sin(phi)}
}

// --- Linear scan ---

type linear struct {
	points []Point
}

func newLinear(points []Point) *linear {
	return &linear{points: points}
}

func (l *linear) Len() int { return len(l.points) }

func (l *linear) Nearest(lat, lon float64) (Point, float64, bool) {
	if len(l.points) == 0 {
		return Point{}, 0, false
	}
	best := 0
	bestDist := math.Inf(1)
	for i, p := range l.points {
		d := domain.HaversineKm(lat, lon, p.Lat, p.Lon)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return l.points[best], bestDist, true
}

// --- k-d tree ---

// cell is a kdtree.Comparable holding a point's unit-sphere embedding.
type cell struct {
	xyz [3]float64
	idx int
}

func (c cell) Compare(o kdtree.Comparable, d kdtree.Dim) float64 {
	return c.xyz[d] - o.(cell).xyz[d]
}

func (c cell) Dims() int { return 3 }

// Distance returns the squared chord length, as kdtree expects.
func (c cell) Distance(o kdtree.Comparable) float64 {
	q := o.(cell)
	var sum float64
	for k := range c.xyz {
		d := c.xyz[k] - q.xyz[k]
		sum += d * d
	}
	return sum
}

// cells is the kdtree.Interface over a slice of cell.
type cells []cell

func (c cells) Index(i int) kdtree.Comparable { return c[i] }
func (c cells) Len() int                      { return len(c) }
func (c cells) Pivot(d kdtree.Dim) int        { return plane{Dim: d, cells: c}.Pivot() }
func (c cells) Slice(start, end int) kdtree.Interface {
	return c[start:end]
}

// plane sorts cells along one dimension for median partitioning.
type plane struct {
	kdtree.Dim
	cells
}

func (p plane) Less(i, j int) bool { return p.cells[i].xyz[p.Dim] < p.cells[j].xyz[p.Dim] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Swap(i, j int)      { p.cells[i], p.cells[j] = p.cells[j], p.cells[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.cells = p.cells[start:end]
	return p
}

type tree struct {
	points []Point
	tree   *kdtree.Tree
}

func newTree(points []Point) *tree {
	cs := make(cells, len(points))
	for i, p := range points {
		cs[i] = cell{xyz: unitVector(p.Lat, p.Lon), idx: i}
	}
	return &tree{points: points, tree: kdtree.New(cs, false)}
}

func (t *tree) Len() int { return len(t.points) }

func (t *tree) Nearest(lat, lon float64) (Point, float64, bool) {
	if len(t.points) == 0 || t.tree == nil {
		return Point{}, 0, false
	}
	got, _ := t.tree.Nearest(cell{xyz: unitVector(lat, lon)})
	if got == nil {
		return Point{}, 0, false
	}
	p := t.points[got.(cell).idx]
	return p, domain.HaversineKm(lat, lon, p.Lat, p.Lon), true
}
