package usecase

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.ngs.io/waves-api/internal/adapter/store"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/matcher"
	"go.ngs.io/waves-api/internal/metrics"
)

// MatchRequest is a batch of observations to collocate with the model field.
type MatchRequest struct {
	Observations []domain.Observation
	// Options overrides the use case defaults field by field; zero fields keep
	// the default.
	Options matcher.Options
	// DedupHourly forces hourly dedup on; nil keeps the default.
	DedupHourly *bool
	// Region drops observations outside it before matching; zero keeps all.
	Region domain.Region
}

// MatchResponse contains the collocated pairs and their statistics.
type MatchResponse struct {
	RunID     string                            `json:"run_id"`
	Outcome   domain.Outcome                    `json:"outcome"`
	Variable  string                            `json:"variable"`
	Options   OptionsView                       `json:"options"`
	Counts    MatchCounts                       `json:"counts"`
	Stats     *domain.ComparisonStats           `json:"stats,omitempty"`
	BySource  map[string]domain.ComparisonStats `json:"by_source,omitempty"`
	Pairs     []PairView                        `json:"pairs"`
	ElapsedMs int64                             `json:"elapsed_ms"`
}

// OptionsView is the effective matching configuration of a run.
type OptionsView struct {
	MaxDistanceKm float64 `json:"max_distance_km"`
	MaxTimeHours  float64 `json:"max_time_hours"`
	DedupHourly   bool    `json:"dedup_hourly"`
	Sampling      string  `json:"sampling"`
}

// MatchCounts accounts for every input observation.
type MatchCounts struct {
	Input         int `json:"input"`
	OutsideRegion int `json:"outside_region"`
	Skipped       int `json:"skipped"`
	Unmatched     int `json:"unmatched"`
	Duplicates    int `json:"duplicates"`
	Matched       int `json:"matched"`
}

// PairView is a flattened matched pair.
type PairView struct {
	Source          string    `json:"source,omitempty"`
	Time            time.Time `json:"time"`
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	Observed        float64   `json:"observed"`
	GridTime        time.Time `json:"grid_time"`
	GridLat         float64   `json:"grid_lat"`
	GridLon         float64   `json:"grid_lon"`
	Modeled         float64   `json:"modeled"`
	DistanceKm      float64   `json:"distance_km"`
	TimeOffsetHours float64   `json:"time_offset_hours"`
}

// NewPairView flattens p.
func NewPairView(p domain.MatchedPair) PairView {
	return PairView{
		Source:          p.Observation.Source,
		Time:            p.Observation.Time,
		Lat:             p.Observation.Lat,
		Lon:             p.Observation.Lon,
		Observed:        p.Observation.Value,
		GridTime:        p.GridTime,
		GridLat:         p.GridLat,
		GridLon:         p.GridLon,
		Modeled:         p.GridValue,
		DistanceKm:      p.DistanceKm,
		TimeOffsetHours: p.TimeOffsetHours(),
	}
}

// MatchUseCase matches observations against one configured field.
type MatchUseCase struct {
	fields   store.FieldLoader
	path     string
	variable string
	defaults matcher.Options

	mu       sync.Mutex
	matchers map[int]*matcher.Matcher // by BruteForceBelow
}

// NewMatchUseCase creates a use case reading variable from the file at path.
func NewMatchUseCase(fields store.FieldLoader, path, variable string, defaults matcher.Options) *MatchUseCase {
	return &MatchUseCase{
		fields:   fields,
		path:     path,
		variable: variable,
		defaults: defaults,
		matchers: make(map[int]*matcher.Matcher),
	}
}

var (
	// ErrNoField is returned when no field file is configured.
	ErrNoField = errors.New("no field file configured")
	// ErrNoObservations is returned when no observation source is configured.
	ErrNoObservations = errors.New("no satellite observations configured")
)

// Stack returns the configured field stack.
func (uc *MatchUseCase) Stack() (*domain.FieldStack, error) {
	if uc.path == "" {
		return nil, ErrNoField
	}
	return uc.fields.Load(uc.path, uc.variable)
}

// Execute matches the request's observations and computes comparison
// statistics when at least two pairs were found.
func (uc *MatchUseCase) Execute(req MatchRequest) (*MatchResponse, error) {
	start := time.Now()
	opts := uc.merge(req)

	m, err := uc.matcher(opts)
	if err != nil {
		return nil, err
	}

	obs := req.Observations
	outside := 0
	if req.Region != (domain.Region{}) {
		kept := make([]domain.Observation, 0, len(obs))
		for _, o := range obs {
			if o.Valid() && !req.Region.Contains(o.Lat, o.Lon, o.Time) {
				outside++
				continue
			}
			kept = append(kept, o)
		}
		obs = kept
	}

	res, eff, err := m.MatchWith(obs, opts)
	if err != nil {
		return nil, err
	}

	resp := &MatchResponse{
		RunID:    uuid.NewString(),
		Outcome:  res.Outcome(),
		Variable: uc.variable,
		Options: OptionsView{
			MaxDistanceKm: eff.MaxDistanceKm,
			MaxTimeHours:  eff.MaxTime.Hours(),
			DedupHourly:   eff.DedupHourly,
			Sampling:      string(eff.Sampling),
		},
		Counts: MatchCounts{
			Input:         len(req.Observations),
			OutsideRegion: outside,
			Skipped:       res.Skipped,
			Unmatched:     res.Unmatched,
			Duplicates:    res.Duplicates,
			Matched:       len(res.Pairs),
		},
		Pairs: make([]PairView, len(res.Pairs)),
	}
	for i, p := range res.Pairs {
		resp.Pairs[i] = NewPairView(p)
	}

	if stats, err := domain.Compare(res.Values()); err == nil {
		resp.Stats = &stats
	}
	resp.BySource = statsBySource(res.Pairs)

	elapsed := time.Since(start)
	resp.ElapsedMs = elapsed.Milliseconds()
	metrics.RecordMatch(string(eff.Sampling), elapsed, len(res.Pairs), res.Unmatched, res.Skipped, res.Duplicates, res.Outcome())

	logging.Info().
		Str("run_id", resp.RunID).
		Int("input", len(req.Observations)).
		Int("matched", len(res.Pairs)).
		Int("unmatched", res.Unmatched).
		Int("skipped", res.Skipped).
		Int("duplicates", res.Duplicates).
		Str("outcome", string(resp.Outcome)).
		Dur("elapsed", elapsed).
		Msg("Match run completed")

	return resp, nil
}

func (uc *MatchUseCase) merge(req MatchRequest) matcher.Options {
	opts := uc.defaults
	o := req.Options
	if o.MaxDistanceKm != 0 {
		opts.MaxDistanceKm = o.MaxDistanceKm
	}
	if o.MaxTime != 0 {
		opts.MaxTime = o.MaxTime
	}
	if o.Sampling != "" {
		opts.Sampling = o.Sampling
	}
	if o.BruteForceBelow != 0 {
		opts.BruteForceBelow = o.BruteForceBelow
	}
	if req.DedupHourly != nil {
		opts.DedupHourly = *req.DedupHourly
	}
	return opts
}

// matcher returns the matcher for the field, building its spatial index once
// per BruteForceBelow. Thresholds are applied per call.
func (uc *MatchUseCase) matcher(opts matcher.Options) (*matcher.Matcher, error) {
	stack, err := uc.Stack()
	if err != nil {
		return nil, fmt.Errorf("failed to load field: %w", err)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if m, ok := uc.matchers[opts.BruteForceBelow]; ok {
		return m, nil
	}
	m, err := matcher.New(stack, opts)
	if err != nil {
		return nil, err
	}
	uc.matchers[opts.BruteForceBelow] = m
	return m, nil
}

// statsBySource compares each source's pairs separately. Sources with fewer
// than two pairs are left out.
func statsBySource(pairs []domain.MatchedPair) map[string]domain.ComparisonStats {
	groups := make(map[string][]domain.MatchedPair)
	for _, p := range pairs {
		groups[p.Observation.Source] = append(groups[p.Observation.Source], p)
	}
	if len(groups) < 2 {
		return nil
	}

	out := make(map[string]domain.ComparisonStats, len(groups))
	for name, group := range groups {
		obs := make([]float64, len(group))
		mod := make([]float64, len(group))
		for i, p := range group {
			obs[i], mod[i] = p.Observation.Value, p.GridValue
		}
		if stats, err := domain.Compare(obs, mod); err == nil {
			out[name] = stats
		}
	}
	return out
}
