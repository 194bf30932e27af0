// Package matcher pairs irregular satellite observations with the nearest cell
// and time step of a gridded field.
package matcher

import (
	"fmt"
	"math"
	"time"

	"go.ngs.io/waves-api/internal/adapter/interp"
	"go.ngs.io/waves-api/internal/adapter/spatial"
	"go.ngs.io/waves-api/internal/domain"
)

// Sampling selects how the grid value of a pair is read.
type Sampling string

const (
	// SamplingNearest takes the value of the nearest grid cell.
	SamplingNearest Sampling = "nearest"
	// SamplingBilinear interpolates the four surrounding nodes at the observation
	// position, falling back to the nearest cell at the grid edge or next to
	// missing values.
	SamplingBilinear Sampling = "bilinear"
)

const (
	// DefaultMaxDistanceKm is the largest accepted great-circle distance
	// between an observation and its grid cell.
	DefaultMaxDistanceKm = 50.0
	// DefaultMaxTime is the largest accepted offset between an observation and
	// the nearest time step.
	DefaultMaxTime = time.Hour
)

// Options controls acceptance thresholds and post-processing.
type Options struct {
	MaxDistanceKm   float64
	MaxTime         time.Duration
	DedupHourly     bool
	Sampling        Sampling
	BruteForceBelow int
}

// DefaultOptions returns 50 km / 1 h thresholds, nearest sampling, no dedup.
func DefaultOptions() Options {
	return Options{
		MaxDistanceKm:   DefaultMaxDistanceKm,
		MaxTime:         DefaultMaxTime,
		Sampling:        SamplingNearest,
		BruteForceBelow: spatial.DefaultBruteForceBelow,
	}
}

// normalize fills zero fields with defaults and rejects invalid ones.
func (o Options) normalize() (Options, error) {
	d := DefaultOptions()
	if o.MaxDistanceKm == 0 {
		o.MaxDistanceKm = d.MaxDistanceKm
	}
	if o.MaxTime == 0 {
		o.MaxTime = d.MaxTime
	}
	if o.Sampling == "" {
		o.Sampling = d.Sampling
	}
	if o.BruteForceBelow <= 0 {
		o.BruteForceBelow = d.BruteForceBelow
	}

	if o.MaxDistanceKm < 0 || math.IsNaN(o.MaxDistanceKm) {
		return o, fmt.Errorf("max distance must be non-negative, got %v", o.MaxDistanceKm)
	}
	if o.MaxTime < 0 {
		return o, fmt.Errorf("max time must be non-negative, got %v", o.MaxTime)
	}
	switch o.Sampling {
	case SamplingNearest, SamplingBilinear:
	default:
		return o, fmt.Errorf("unknown sampling %q (use nearest or bilinear)", o.Sampling)
	}
	return o, nil
}

// Result holds the accepted pairs and what happened to the rest.
type Result struct {
	Pairs      []domain.MatchedPair `json:"pairs"`
	Skipped    int                  `json:"skipped"`    // invalid observations
	Unmatched  int                  `json:"unmatched"`  // outside thresholds or over missing cells
	Duplicates int                  `json:"duplicates"` // removed by hourly dedup
}

// Outcome reports whether the run produced pairs. An empty result is not an error.
func (r Result) Outcome() domain.Outcome {
	if len(r.Pairs) > 0 {
		return domain.OutcomeMatched
	}
	return domain.OutcomeEmpty
}

// Values returns the observed and gridded values of the pairs, in order.
func (r Result) Values() (observed, gridded []float64) {
	observed = make([]float64, len(r.Pairs))
	gridded = make([]float64, len(r.Pairs))
	for i, p := range r.Pairs {
		observed[i] = p.Observation.Value
		gridded[i] = p.GridValue
	}
	return observed, gridded
}

// Matcher matches observations against one field stack. It is safe for
// concurrent use once built. The spatial index depends only on the stack and
// BruteForceBelow, so one Matcher serves any thresholds through MatchWith.
type Matcher struct {
	stack *domain.FieldStack
	index spatial.Index
	opts  Options
}

// New validates the stack and builds its spatial index.
func New(stack *domain.FieldStack, opts Options) (*Matcher, error) {
	if stack == nil {
		return nil, fmt.Errorf("%w: nil field stack", domain.ErrInvalidGrid)
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	stack = stack.Ascending()
	if err := stack.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		stack: stack,
		index: spatial.NewGrid(stack.Lat, stack.Lon, opts.BruteForceBelow),
		opts:  opts,
	}, nil
}

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Stack returns the indexed field stack.
func (m *Matcher) Stack() *domain.FieldStack { return m.stack }

// Match pairs every valid observation with its nearest time step and grid cell.
// Pairs keep input order; with hourly dedup only the closest pair per
// (source, hour) survives.
func (m *Matcher) Match(obs []domain.Observation) Result {
	return m.match(obs, m.opts)
}

// MatchWith is Match with per-call thresholds, sampling and dedup. Zero fields
// fall back to defaults; BruteForceBelow is ignored since the index is built.
// It returns the effective options.
func (m *Matcher) MatchWith(obs []domain.Observation, opts Options) (Result, Options, error) {
	opts.BruteForceBelow = m.opts.BruteForceBelow
	opts, err := opts.normalize()
	if err != nil {
		return Result{}, opts, err
	}
	return m.match(obs, opts), opts, nil
}

func (m *Matcher) match(obs []domain.Observation, opts Options) Result {
	var res Result
	res.Pairs = make([]domain.MatchedPair, 0, len(obs))

	for _, o := range obs {
		if !o.Valid() {
			res.Skipped++
			continue
		}
		o.Lon = domain.NormalizeLon180(o.Lon)

		pair, ok := m.matchOne(o, opts)
		if !ok {
			res.Unmatched++
			continue
		}
		res.Pairs = append(res.Pairs, pair)
	}

	if opts.DedupHourly {
		before := len(res.Pairs)
		res.Pairs = DedupPairs(res.Pairs)
		res.Duplicates = before - len(res.Pairs)
	}
	return res
}

func (m *Matcher) matchOne(o domain.Observation, opts Options) (domain.MatchedPair, bool) {
	ti, dt := m.stack.NearestTime(o.Time)
	if ti < 0 || dt > opts.MaxTime {
		return domain.MatchedPair{}, false
	}

	cell, dist, ok := m.index.Nearest(o.Lat, o.Lon)
	if !ok || dist > opts.MaxDistanceKm {
		return domain.MatchedPair{}, false
	}

	value := m.stack.Values[ti][cell.Row][cell.Col]
	if opts.Sampling == SamplingBilinear {
		if v, err := interp.FromSnapshot(m.stack.Snapshot(ti)).At(o.Lat, o.Lon); err == nil {
			value = v
		}
	}
	if math.IsNaN(value) {
		return domain.MatchedPair{}, false
	}

	return domain.MatchedPair{
		Observation: o,
		GridTime:    m.stack.Times[ti],
		GridLat:     cell.Lat,
		GridLon:     cell.Lon,
		GridValue:   value,
		DistanceKm:  dist,
		TimeOffset:  o.Time.Sub(m.stack.Times[ti]),
	}, true
}
