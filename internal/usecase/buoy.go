package usecase

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.ngs.io/waves-api/internal/adapter/spatial"
	"go.ngs.io/waves-api/internal/adapter/store"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/matcher"
)

// Buoy is a fixed comparison site.
type Buoy struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// SeriesPoint is one value of a time series.
type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// BuoyPair is a satellite observation near a buoy with the model value at the
// buoy's grid cell for the nearest time step.
type BuoyPair struct {
	Source     string    `json:"source"`
	Time       time.Time `json:"time"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	DistanceKm float64   `json:"distance_km"`
	Observed   float64   `json:"observed"`
	Modeled    float64   `json:"modeled"`
	// HasModel is false when no model time step lies within the time window
	// or the cell is missing; Modeled is then zero.
	HasModel bool `json:"has_model"`
}

// BuoyThreshold holds the observations found within one distance of a buoy.
type BuoyThreshold struct {
	ThresholdKm float64                 `json:"threshold_km"`
	Pairs       []BuoyPair              `json:"pairs"`
	Stats       *domain.ComparisonStats `json:"stats,omitempty"`
}

// BuoyResult is the comparison for one buoy.
type BuoyResult struct {
	Buoy           Buoy            `json:"buoy"`
	GridLat        float64         `json:"grid_lat"`
	GridLon        float64         `json:"grid_lon"`
	GridDistanceKm float64         `json:"grid_distance_km"`
	Series         []SeriesPoint   `json:"series"`
	Thresholds     []BuoyThreshold `json:"thresholds"`
}

// BuoyUseCase compares satellite observations around fixed sites with the
// model series at the sites.
type BuoyUseCase struct {
	observations store.ObservationLoader
	fields       store.FieldLoader
	path         string
	variable     string
	region       domain.Region
	maxTime      time.Duration
	buoys        []Buoy
	thresholdsKm []float64
}

// NewBuoyUseCase creates the use case. maxTime bounds the observation to
// model time offset (matcher.DefaultMaxTime when zero).
func NewBuoyUseCase(observations store.ObservationLoader, fields store.FieldLoader, path, variable string,
	region domain.Region, maxTime time.Duration, buoys []Buoy, thresholdsKm []float64,
) *BuoyUseCase {
	if maxTime <= 0 {
		maxTime = matcher.DefaultMaxTime
	}
	thr := append([]float64(nil), thresholdsKm...)
	sort.Float64s(thr)
	return &BuoyUseCase{
		observations: observations,
		fields:       fields,
		path:         path,
		variable:     variable,
		region:       region,
		maxTime:      maxTime,
		buoys:        buoys,
		thresholdsKm: thr,
	}
}

// Buoys returns the configured sites.
func (uc *BuoyUseCase) Buoys() []Buoy { return uc.buoys }

// ThresholdsKm returns the configured distances in increasing order.
func (uc *BuoyUseCase) ThresholdsKm() []float64 { return uc.thresholdsKm }

// Execute runs the comparison for every configured buoy.
func (uc *BuoyUseCase) Execute() ([]BuoyResult, error) {
	if uc.path == "" {
		return nil, ErrNoField
	}
	if uc.observations == nil {
		return nil, ErrNoObservations
	}
	stack, err := uc.fields.Load(uc.path, uc.variable)
	if err != nil {
		return nil, fmt.Errorf("failed to load field: %w", err)
	}
	stack = stack.Ascending()
	if err := stack.Validate(); err != nil {
		return nil, err
	}
	obs, err := uc.observations.Load(uc.region)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}

	index := spatial.NewGrid(stack.Lat, stack.Lon, 0)
	results := make([]BuoyResult, 0, len(uc.buoys))
	for _, b := range uc.buoys {
		res, err := uc.compare(b, stack, index, obs)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (uc *BuoyUseCase) compare(b Buoy, stack *domain.FieldStack, index spatial.Index, obs []domain.Observation) (BuoyResult, error) {
	lon := domain.NormalizeLon180(b.Lon)
	cell, dist, ok := index.Nearest(b.Lat, lon)
	if !ok {
		return BuoyResult{}, fmt.Errorf("%w: empty grid", domain.ErrInvalidGrid)
	}

	res := BuoyResult{
		Buoy:           b,
		GridLat:        cell.Lat,
		GridLon:        cell.Lon,
		GridDistanceKm: dist,
		Series:         make([]SeriesPoint, 0, len(stack.Times)),
	}
	for t, at := range stack.Times {
		if v := stack.Values[t][cell.Row][cell.Col]; !math.IsNaN(v) {
			res.Series = append(res.Series, SeriesPoint{Time: at, Value: v})
		}
	}

	for _, thr := range uc.thresholdsKm {
		near := make([]BuoyPair, 0)
		for _, o := range obs {
			if !o.Valid() {
				continue
			}
			d := domain.HaversineKm(b.Lat, lon, o.Lat, o.Lon)
			if d > thr {
				continue
			}
			near = append(near, BuoyPair{
				Source:     o.Source,
				Time:       o.Time,
				Lat:        o.Lat,
				Lon:        o.Lon,
				DistanceKm: d,
				Observed:   o.Value,
			})
		}
		near = matcher.KeepClosestPerHour(near,
			func(p BuoyPair) (string, time.Time) { return p.Source, p.Time },
			func(p BuoyPair) float64 { return p.DistanceKm },
		)

		var observed, modeled []float64
		for i := range near {
			ti, dt := stack.NearestTime(near[i].Time)
			if ti < 0 || dt > uc.maxTime {
				continue
			}
			v := stack.Values[ti][cell.Row][cell.Col]
			if math.IsNaN(v) {
				continue
			}
			near[i].Modeled, near[i].HasModel = v, true
			observed = append(observed, near[i].Observed)
			modeled = append(modeled, v)
		}

		bt := BuoyThreshold{ThresholdKm: thr, Pairs: near}
		if stats, err := domain.Compare(observed, modeled); err == nil {
			bt.Stats = &stats
		}
		res.Thresholds = append(res.Thresholds, bt)

		logging.Debug().
			Str("buoy", b.Name).
			Float64("threshold_km", thr).
			Int("observations", len(near)).
			Int("with_model", len(observed)).
			Msg("Buoy threshold compared")
	}
	return res, nil
}
