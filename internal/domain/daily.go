package domain

import (
	"math"
	"time"
)

// DailyMeans averages a field stack per UTC calendar day. Each cell mean ignores
// NaN values; a cell with no valid sample on a day stays NaN. The result shares
// the input axes and has one time step per day, stamped at 00:00 UTC.
func DailyMeans(s *FieldStack) *FieldStack {
	out := &FieldStack{
		Variable: s.Variable,
		Units:    s.Units,
		Lat:      s.Lat,
		Lon:      s.Lon,
	}
	if len(s.Times) == 0 {
		return out
	}

	nLat, nLon := len(s.Lat), len(s.Lon)
	var (
		day    time.Time
		sums   [][]float64
		counts [][]int
	)

	flush := func() {
		grid := make([][]float64, nLat)
		for i := range grid {
			grid[i] = make([]float64, nLon)
			for j := range grid[i] {
				if counts[i][j] == 0 {
					grid[i][j] = math.NaN()
					continue
				}
				grid[i][j] = sums[i][j] / float64(counts[i][j])
			}
		}
		out.Times = append(out.Times, day)
		out.Values = append(out.Values, grid)
	}

	for t, ts := range s.Times {
		d := ts.UTC().Truncate(24 * time.Hour)
		if sums == nil || !d.Equal(day) {
			if sums != nil {
				flush()
			}
			day = d
			sums = make([][]float64, nLat)
			counts = make([][]int, nLat)
			for i := range sums {
				sums[i] = make([]float64, nLon)
				counts[i] = make([]int, nLon)
			}
		}
		for i, row := range s.Values[t] {
			for j, v := range row {
				if math.IsNaN(v) {
					continue
				}
				sums[i][j] += v
				counts[i][j]++
			}
		}
	}
	flush()

	return out
}
