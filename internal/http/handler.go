package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/waves-api/internal/adapter/store"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/matcher"
	"go.ngs.io/waves-api/internal/spectra"
	"go.ngs.io/waves-api/internal/usecase"
)

// maxSpectraBody bounds uploaded spectrum files.
const maxSpectraBody = 64 << 20

// Handler handles HTTP requests for wave data comparison.
type Handler struct {
	matchUC   *usecase.MatchUseCase
	spectraUC *usecase.SpectraUseCase
	buoyUC    *usecase.BuoyUseCase

	observations store.ObservationLoader
	region       domain.Region
	spectraPaths map[string]string
}

// HandlerDeps groups the services a Handler serves.
type HandlerDeps struct {
	Match   *usecase.MatchUseCase
	Spectra *usecase.SpectraUseCase
	Buoys   *usecase.BuoyUseCase

	// Observations feeds GET /v1/match; nil disables it.
	Observations store.ObservationLoader
	// Region is the default study region of GET requests.
	Region domain.Region
	// SpectraPaths maps a format name to its configured file or directory.
	SpectraPaths map[string]string
}

// NewHandler creates a new HTTP handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		matchUC:      deps.Match,
		spectraUC:    deps.Spectra,
		buoyUC:       deps.Buoys,
		observations: deps.Observations,
		region:       deps.Region,
		spectraPaths: deps.SpectraPaths,
	}
}

// matchBody is the JSON body of POST /v1/match.
type matchBody struct {
	Observations []observationBody `json:"observations" binding:"required,min=1,dive"`
}

type observationBody struct {
	Time     time.Time `json:"time" binding:"required"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon" binding:"gte=-180,lte=360"`
	Value    float64   `json:"value"`
	Source   string    `json:"source"`
	Variable string    `json:"variable"`
}

// PostMatch handles POST /v1/match.
func (h *Handler) PostMatch(c *gin.Context) {
	var body matchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	req, err := matchRequestFromQuery(c, domain.Region{})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Observations = make([]domain.Observation, len(body.Observations))
	for i, o := range body.Observations {
		req.Observations[i] = domain.Observation{
			Time:     o.Time.UTC(),
			Lat:      o.Lat,
			Lon:      o.Lon,
			Value:    o.Value,
			Source:   o.Source,
			Variable: o.Variable,
		}
	}

	h.runMatch(c, req)
}

// GetMatch handles GET /v1/match, matching the configured satellite
// observations inside the requested region.
func (h *Handler) GetMatch(c *gin.Context) {
	if h.observations == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no satellite data configured"})
		return
	}

	req, err := matchRequestFromQuery(c, h.region)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs, err := h.observations.Load(req.Region)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNoData) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	req.Observations = obs

	h.runMatch(c, req)
}

func (h *Handler) runMatch(c *gin.Context, req usecase.MatchRequest) {
	resp, err := h.matchUC.Execute(req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	if c.Query("pairs") == "false" {
		resp.Pairs = nil
	}
	c.JSON(http.StatusOK, resp)
}

// matchRequestFromQuery reads the matching overrides and region from the
// query string.
func matchRequestFromQuery(c *gin.Context, fallback domain.Region) (usecase.MatchRequest, error) {
	var req usecase.MatchRequest

	if s := c.Query("max_distance_km"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return req, fmt.Errorf("invalid max_distance_km: %q", s)
		}
		req.Options.MaxDistanceKm = v
	}
	if s := c.Query("max_time"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return req, fmt.Errorf("invalid max_time (expected a duration such as 1h or 30m): %q", s)
		}
		req.Options.MaxTime = d
	}
	if s := c.Query("dedup"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return req, fmt.Errorf("invalid dedup: %q", s)
		}
		req.DedupHourly = &v
	}
	if s := c.Query("sampling"); s != "" {
		switch matcher.Sampling(s) {
		case matcher.SamplingNearest, matcher.SamplingBilinear:
			req.Options.Sampling = matcher.Sampling(s)
		default:
			return req, fmt.Errorf("invalid sampling %q (use nearest or bilinear)", s)
		}
	}

	region, err := parseRegion(c, fallback)
	if err != nil {
		return req, err
	}
	req.Region = region
	return req, nil
}

// parseRegion overrides fallback with the bbox, start and end query
// parameters. bbox is min_lat,min_lon,max_lat,max_lon; region=all clears the
// fallback.
func parseRegion(c *gin.Context, fallback domain.Region) (domain.Region, error) {
	region := fallback
	if c.Query("region") == "all" {
		region = domain.Region{}
	}

	if s := c.Query("bbox"); s != "" {
		parts := strings.Split(s, ",")
		if len(parts) != 4 {
			return region, fmt.Errorf("invalid bbox %q (expected min_lat,min_lon,max_lat,max_lon)", s)
		}
		var v [4]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return region, fmt.Errorf("invalid bbox %q: %v", s, err)
			}
			v[i] = f
		}
		if v[0] > v[2] || v[0] < -90 || v[2] > 90 {
			return region, fmt.Errorf("invalid bbox latitudes in %q", s)
		}
		region.Box = domain.BoundingBox{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
	}

	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return region, fmt.Errorf("invalid start time (expected RFC3339): %v", err)
		}
		region.Start = t.UTC()
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return region, fmt.Errorf("invalid end time (expected RFC3339): %v", err)
		}
		region.End = t.UTC()
	}
	if !region.Start.IsZero() && !region.End.IsZero() && region.End.Before(region.Start) {
		return region, fmt.Errorf("end must not be before start")
	}
	return region, nil
}

// PostSpectra handles POST /v1/spectra. The body is a raw spectrum file.
func (h *Handler) PostSpectra(c *gin.Context) {
	req, err := spectraRequestFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSpectraBody)

	h.runSpectra(c, req)
}

// GetSpectra handles GET /v1/spectra, analysing the configured file for the
// requested format.
func (h *Handler) GetSpectra(c *gin.Context) {
	req, err := spectraRequestFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Path = h.spectraPaths[req.Format.Name]
	if req.Path == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("no %s spectra configured", req.Format.Name)})
		return
	}

	h.runSpectra(c, req)
}

func (h *Handler) runSpectra(c *gin.Context, req usecase.SpectraRequest) {
	resp, err := h.spectraUC.Execute(req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func spectraRequestFromQuery(c *gin.Context) (usecase.SpectraRequest, error) {
	var req usecase.SpectraRequest

	format, err := spectra.FormatByName(c.DefaultQuery("format", spectra.SWIM.Name))
	if err != nil {
		return req, err
	}
	req.Format = format

	if s := c.Query("threshold_hz"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v >= 1 {
			return req, fmt.Errorf("invalid threshold_hz: %q", s)
		}
		req.ThresholdHz = v
	}
	if s := c.Query("include_spectra"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return req, fmt.Errorf("invalid include_spectra: %q", s)
		}
		req.IncludeSpectra = v
	}

	region, err := parseRegion(c, domain.Region{})
	if err != nil {
		return req, err
	}
	req.Region = region
	return req, nil
}

// GetSpectraAxes handles GET /v1/spectra/axes.
func (h *Handler) GetSpectraAxes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"frequencies_hz":        domain.Frequencies(),
		"directions_deg":        domain.Directions(),
		"frequency_step":        domain.FrequencyStep(),
		"wind_sea_threshold_hz": domain.DefaultWindSeaThresholdHz,
	})
}

// GetBuoys handles GET /v1/buoys.
func (h *Handler) GetBuoys(c *gin.Context) {
	buoys := h.buoyUC.Buoys()
	c.JSON(http.StatusOK, gin.H{
		"buoys":         buoys,
		"count":         len(buoys),
		"thresholds_km": h.buoyUC.ThresholdsKm(),
	})
}

// GetBuoyComparison handles GET /v1/buoys/compare.
func (h *Handler) GetBuoyComparison(c *gin.Context) {
	results, err := h.buoyUC.Execute()
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	if name := c.Query("name"); name != "" {
		for _, r := range results {
			if strings.EqualFold(r.Buoy.Name, name) {
				c.JSON(http.StatusOK, r)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown buoy %q", name)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// GetField handles GET /v1/field.
func (h *Handler) GetField(c *gin.Context) {
	stack, err := h.matchUC.Stack()
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	s := stack.Ascending()

	resp := gin.H{
		"variable":  s.Variable,
		"units":     s.Units,
		"lat_count": len(s.Lat),
		"lon_count": len(s.Lon),
		"times":     len(s.Times),
		"cells":     s.Cells(),
	}
	if len(s.Lat) > 0 && len(s.Lon) > 0 {
		resp["bbox"] = domain.BoundingBox{
			MinLat: s.Lat[0], MaxLat: s.Lat[len(s.Lat)-1],
			MinLon: s.Lon[0], MaxLon: s.Lon[len(s.Lon)-1],
		}
	}
	if len(s.Times) > 0 {
		resp["start"] = s.Times[0].Format(time.RFC3339)
		resp["end"] = s.Times[len(s.Times)-1].Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// errorStatus maps use case errors to HTTP status codes.
func errorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, usecase.ErrNoField), errors.Is(err, usecase.ErrNoObservations):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNoData):
		return http.StatusNotFound
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
