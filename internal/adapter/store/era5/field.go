package era5

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.ngs.io/waves-api/internal/domain"
)

// Coordinate variable names tried in order.
var (
	latNames  = []string{"latitude", "lat"}
	lonNames  = []string{"longitude", "lon"}
	timeNames = []string{"valid_time", "time"}
)

// rawField is a variable as read from disk, before unit and layout handling.
type rawField struct {
	Lat, Lon  []float64
	Time      []float64
	TimeUnits string
	Units     string

	// DimNames is the variable's dimension order; Shape the matching lengths.
	DimNames []string
	Shape    []int
	// Data is row-major in DimNames order.
	Data []float64

	Scale, Offset float64
	HasScale      bool
	Fill          []float64
}

// toStack decodes r into a field stack: packed values are unpacked, fill values
// become NaN, and the layout is rearranged to [time][lat][lon].
func (r *rawField) toStack(variable string) (*domain.FieldStack, error) {
	times, err := decodeTimes(r.Time, r.TimeUnits)
	if err != nil {
		return nil, err
	}

	if len(r.DimNames) != 3 || len(r.Shape) != 3 {
		return nil, fmt.Errorf("%w: %s has %d dimensions, expected (time, latitude, longitude)",
			domain.ErrInvalidGrid, variable, len(r.DimNames))
	}
	ti, yi, xi := -1, -1, -1
	for k, name := range r.DimNames {
		switch {
		case contains(timeNames, name):
			ti = k
		case contains(latNames, name):
			yi = k
		case contains(lonNames, name):
			xi = k
		}
	}
	if ti < 0 || yi < 0 || xi < 0 {
		return nil, fmt.Errorf("%w: unrecognised dimensions %v", domain.ErrInvalidGrid, r.DimNames)
	}
	if r.Shape[ti] != len(times) || r.Shape[yi] != len(r.Lat) || r.Shape[xi] != len(r.Lon) {
		return nil, fmt.Errorf("%w: shape %v does not match axes (time %d, lat %d, lon %d)",
			domain.ErrInvalidGrid, r.Shape, len(times), len(r.Lat), len(r.Lon))
	}
	if want := r.Shape[0] * r.Shape[1] * r.Shape[2]; len(r.Data) != want {
		return nil, fmt.Errorf("%w: %d values for shape %v", domain.ErrInvalidGrid, len(r.Data), r.Shape)
	}

	// Row-major strides in stored order.
	strides := [3]int{r.Shape[1] * r.Shape[2], r.Shape[2], 1}

	scale := 1.0
	if r.HasScale {
		scale = r.Scale
	}

	values := make([][][]float64, len(times))
	for t := range values {
		values[t] = make([][]float64, len(r.Lat))
		for i := range values[t] {
			row := make([]float64, len(r.Lon))
			for j := range row {
				raw := r.Data[t*strides[ti]+i*strides[yi]+j*strides[xi]]
				row[j] = r.unpack(raw, scale)
			}
			values[t][i] = row
		}
	}

	stack := &domain.FieldStack{
		Variable: variable,
		Units:    r.Units,
		Lat:      append([]float64(nil), r.Lat...),
		Lon:      append([]float64(nil), r.Lon...),
		Times:    times,
		Values:   values,
	}
	rollLongitudes(stack)
	return stack, nil
}

func (r *rawField) unpack(raw, scale float64) float64 {
	if math.IsNaN(raw) {
		return raw
	}
	for _, fv := range r.Fill {
		if raw == fv {
			return math.NaN()
		}
	}
	return raw*scale + r.Offset
}

// decodeTimes converts CF "<unit> since <epoch>" offsets to UTC times.
func decodeTimes(offsets []float64, units string) ([]time.Time, error) {
	unit, epoch, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(offsets))
	for k, v := range offsets {
		out[k] = epoch.Add(time.Duration(math.Round(v * float64(unit)))).UTC()
	}
	return out, nil
}

var epochLayouts = []string{
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unsupported time units %q", domain.ErrInvalidGrid, units)
	}

	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "s":
		unit = time.Second
	case "minutes", "minute", "mins":
		unit = time.Minute
	case "hours", "hour", "hrs", "h":
		unit = time.Hour
	case "days", "day", "d":
		unit = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("%w: unsupported time unit %q", domain.ErrInvalidGrid, parts[0])
	}

	ref := strings.TrimSuffix(strings.TrimSpace(parts[1]), " UTC")
	for _, layout := range epochLayouts {
		if epoch, err := time.ParseInLocation(layout, ref, time.UTC); err == nil {
			return unit, epoch, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("%w: unparseable time origin %q", domain.ErrInvalidGrid, parts[1])
}

// rollLongitudes maps a 0..360 longitude axis to -180..180 and reorders the
// columns so the axis stays increasing.
func rollLongitudes(s *domain.FieldStack) {
	needs := false
	for _, lon := range s.Lon {
		if lon > 180 {
			needs = true
			break
		}
	}
	if !needs {
		return
	}

	order := make([]int, len(s.Lon))
	for j := range order {
		order[j] = j
	}
	wrapped := make([]float64, len(s.Lon))
	for j, lon := range s.Lon {
		wrapped[j] = domain.NormalizeLon180(lon)
	}
	sort.SliceStable(order, func(a, b int) bool { return wrapped[order[a]] < wrapped[order[b]] })

	lon := make([]float64, len(order))
	for j, k := range order {
		lon[j] = wrapped[k]
	}
	s.Lon = lon
	for t := range s.Values {
		for i, row := range s.Values[t] {
			out := make([]float64, len(order))
			for j, k := range order {
				out[j] = row[k]
			}
			s.Values[t][i] = out
		}
	}
}

// subset keeps the rows and columns inside box. A box crossing the
// antimeridian is not supported.
func subset(s *domain.FieldStack, box domain.BoundingBox) (*domain.FieldStack, error) {
	if box.IsZero() {
		return s, nil
	}
	if box.MinLon > box.MaxLon {
		return nil, fmt.Errorf("bounding box crossing the antimeridian is not supported for subsetting")
	}

	var rows, cols []int
	for i, lat := range s.Lat {
		if lat >= box.MinLat && lat <= box.MaxLat {
			rows = append(rows, i)
		}
	}
	for j, lon := range s.Lon {
		if lon >= box.MinLon && lon <= box.MaxLon {
			cols = append(cols, j)
		}
	}
	if len(rows) == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("%w: no %s grid cells inside %+v", domain.ErrNoData, s.Variable, box)
	}

	out := &domain.FieldStack{
		Variable: s.Variable,
		Units:    s.Units,
		Lat:      make([]float64, len(rows)),
		Lon:      make([]float64, len(cols)),
		Times:    s.Times,
		Values:   make([][][]float64, len(s.Times)),
	}
	for k, i := range rows {
		out.Lat[k] = s.Lat[i]
	}
	for k, j := range cols {
		out.Lon[k] = s.Lon[j]
	}
	for t := range s.Values {
		out.Values[t] = make([][]float64, len(rows))
		for k, i := range rows {
			row := make([]float64, len(cols))
			for m, j := range cols {
				row[m] = s.Values[t][i][j]
			}
			out.Values[t][k] = row
		}
	}
	return out, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
