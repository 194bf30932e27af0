package usecase

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/metrics"
	"go.ngs.io/waves-api/internal/spectra"
)

// SpectraRequest selects spectrum records to analyse. Exactly one of Path and
// Body is used; Body wins when both are set.
type SpectraRequest struct {
	Path   string // file, directory or http(s) URL
	Body   io.Reader
	Format spectra.Format

	// ThresholdHz overrides the wind-sea/swell split frequency when > 0.
	ThresholdHz float64
	// Region drops records outside it; zero keeps all.
	Region domain.Region
	// IncludeSpectra adds the 1-D frequency and direction spectra to each record.
	IncludeSpectra bool
}

// SpectrumRecord is one analysed spectrum.
type SpectrumRecord struct {
	Time       time.Time               `json:"time"`
	Lat        float64                 `json:"lat"`
	Lon        float64                 `json:"lon"`
	Params     []float64               `json:"params,omitempty"`
	Integrated domain.IntegratedParams `json:"integrated"`

	FrequencySpectrum   []float64 `json:"frequency_spectrum,omitempty"`
	DirectionalSpectrum []float64 `json:"directional_spectrum,omitempty"`
}

// SpectraSummary aggregates the integrated parameters of a run.
type SpectraSummary struct {
	Count             int     `json:"count"`
	MeanHs            float64 `json:"mean_swh"`
	MaxHs             float64 `json:"max_swh"`
	MeanTp            float64 `json:"mean_tp"`
	MeanHsWindSea     float64 `json:"mean_swh_wind_sea"`
	MeanHsSwell       float64 `json:"mean_swh_swell"`
	MeanSwellFraction float64 `json:"mean_swell_fraction"`
	First             string  `json:"first,omitempty"`
	Last              string  `json:"last,omitempty"`
}

// SpectraResponse is the result of a spectra analysis run.
type SpectraResponse struct {
	RunID         string           `json:"run_id"`
	Format        string           `json:"format"`
	Outcome       domain.Outcome   `json:"outcome"`
	ThresholdHz   float64          `json:"threshold_hz"`
	Parse         spectra.Stats    `json:"parse"`
	OutsideRegion int              `json:"outside_region"`
	Summary       SpectraSummary   `json:"summary"`
	Records       []SpectrumRecord `json:"records"`
}

// SpectraUseCase parses and analyses directional wave spectra.
type SpectraUseCase struct {
	thresholdHz float64
}

// NewSpectraUseCase creates a use case splitting wind sea from swell at
// thresholdHz (domain.DefaultWindSeaThresholdHz when <= 0).
func NewSpectraUseCase(thresholdHz float64) *SpectraUseCase {
	if thresholdHz <= 0 {
		thresholdHz = domain.DefaultWindSeaThresholdHz
	}
	return &SpectraUseCase{thresholdHz: thresholdHz}
}

// Execute parses the request's input and analyses every record in region.
// Malformed blocks are counted in the response, never returned as errors.
func (uc *SpectraUseCase) Execute(req SpectraRequest) (*SpectraResponse, error) {
	if req.Format.Name == "" {
		req.Format = spectra.SWIM
	}
	thr := uc.thresholdHz
	if req.ThresholdHz > 0 {
		thr = req.ThresholdHz
	}

	var (
		specs []domain.Spectrum
		stats spectra.Stats
		err   error
	)
	switch {
	case req.Body != nil:
		specs, stats, err = spectra.Parse(req.Body, req.Format)
	case req.Path != "":
		specs, stats, err = spectra.Load(req.Path, req.Format)
	default:
		return nil, fmt.Errorf("no spectra input given")
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordSpectra(req.Format.Name, stats.Records, stats.SkippedBlocks, stats.MalformedHeaders, stats.SkippedFiles)

	resp := &SpectraResponse{
		RunID:       uuid.NewString(),
		Format:      req.Format.Name,
		ThresholdHz: thr,
		Parse:       stats,
		Records:     make([]SpectrumRecord, 0, len(specs)),
	}

	for i := range specs {
		s := &specs[i]
		if !req.Region.Contains(s.Lat, s.Lon, s.Time) {
			resp.OutsideRegion++
			continue
		}
		rec := SpectrumRecord{
			Time:       s.Time,
			Lat:        s.Lat,
			Lon:        s.Lon,
			Params:     s.Params,
			Integrated: domain.Analyze(s, thr),
		}
		if req.IncludeSpectra {
			rec.FrequencySpectrum = domain.FrequencySpectrum(&s.Energy)
			rec.DirectionalSpectrum = domain.DirectionalSpectrum(&s.Energy)
		}
		resp.Records = append(resp.Records, rec)
	}

	resp.Summary = summarize(resp.Records)
	resp.Outcome = domain.OutcomeEmpty
	if len(resp.Records) > 0 {
		resp.Outcome = domain.OutcomeMatched
	}

	logging.Info().
		Str("run_id", resp.RunID).
		Str("format", resp.Format).
		Int("records", len(resp.Records)).
		Int("skipped_blocks", stats.SkippedBlocks).
		Int("malformed_headers", stats.MalformedHeaders).
		Int("outside_region", resp.OutsideRegion).
		Msg("Spectra analysed")

	return resp, nil
}

func summarize(recs []SpectrumRecord) SpectraSummary {
	var s SpectraSummary
	s.Count = len(recs)
	if s.Count == 0 {
		return s
	}

	first, last := recs[0].Time, recs[0].Time
	for _, r := range recs {
		p := r.Integrated
		s.MeanHs += p.Hs
		s.MeanTp += p.Tp
		s.MeanHsWindSea += p.HsWindSea
		s.MeanHsSwell += p.HsSwell
		s.MeanSwellFraction += p.SwellFraction
		if p.Hs > s.MaxHs {
			s.MaxHs = p.Hs
		}
		if r.Time.Before(first) {
			first = r.Time
		}
		if r.Time.After(last) {
			last = r.Time
		}
	}
	n := float64(s.Count)
	s.MeanHs /= n
	s.MeanTp /= n
	s.MeanHsWindSea /= n
	s.MeanHsSwell /= n
	s.MeanSwellFraction /= n
	s.First = first.Format(time.RFC3339)
	s.Last = last.Format(time.RFC3339)
	return s
}
