// Package config loads waves-api configuration from defaults, an optional YAML
// file and WAVES_ environment variables.
package config

import (
	"fmt"
	"time"

	"go.ngs.io/waves-api/internal/adapter/spatial"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/matcher"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Data    DataConfig     `koanf:"data"`
	Match   MatchConfig    `koanf:"match"`
	Spectra SpectraConfig  `koanf:"spectra"`
	Region  RegionConfig   `koanf:"region"`
	Buoys   BuoysConfig    `koanf:"buoys"`
	Logging logging.Config `koanf:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string          `koanf:"host"`
	Port        int             `koanf:"port" validate:"min=1,max=65535"`
	CORSOrigins []string        `koanf:"cors_origins"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig limits requests per client IP on the compute endpoints.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"min=1"`
	Window   time.Duration `koanf:"window" validate:"min=1ms"`
}

// DataConfig locates the input datasets.
type DataConfig struct {
	// ERA5Path is a NetCDF file with a (time, latitude, longitude) variable.
	ERA5Path     string `koanf:"era5_path"`
	ERA5Variable string `koanf:"era5_variable" validate:"required"`
	// ERA5Backend selects the NetCDF reader: cgo (libnetcdf) or native (pure Go).
	ERA5Backend string `koanf:"era5_backend" validate:"oneof=cgo native"`

	// SatelliteDir holds one subdirectory of CSV files per satellite.
	SatelliteDir      string `koanf:"satellite_dir"`
	SatelliteVariable string `koanf:"satellite_variable"`

	SWIMPath string `koanf:"swim_path"`
	SARDir   string `koanf:"sar_dir"`
}

// MatchConfig holds the spatiotemporal matching thresholds.
type MatchConfig struct {
	MaxDistanceKm   float64       `koanf:"max_distance_km" validate:"gt=0"`
	MaxTime         time.Duration `koanf:"max_time" validate:"gt=0"`
	Dedup           bool          `koanf:"dedup"`
	Sampling        string        `koanf:"sampling" validate:"oneof=nearest bilinear"`
	BruteForceBelow int           `koanf:"brute_force_below" validate:"min=0"`
}

// Options converts the section into matcher options.
func (m MatchConfig) Options() matcher.Options {
	return matcher.Options{
		MaxDistanceKm:   m.MaxDistanceKm,
		MaxTime:         m.MaxTime,
		DedupHourly:     m.Dedup,
		Sampling:        matcher.Sampling(m.Sampling),
		BruteForceBelow: m.BruteForceBelow,
	}
}

// SpectraConfig configures spectrum analysis.
type SpectraConfig struct {
	Format             string  `koanf:"format" validate:"oneof=swim sar"`
	WindSeaThresholdHz float64 `koanf:"wind_sea_threshold_hz" validate:"gt=0,lt=1"`
}

// RegionConfig is the study area. Start and End are RFC 3339 timestamps; empty
// leaves that side of the window open.
type RegionConfig struct {
	MinLat float64 `koanf:"min_lat" validate:"gte=-90,lte=90"`
	MaxLat float64 `koanf:"max_lat" validate:"gte=-90,lte=90,gtefield=MinLat"`
	MinLon float64 `koanf:"min_lon" validate:"gte=-180,lte=180"`
	MaxLon float64 `koanf:"max_lon" validate:"gte=-180,lte=180"`
	Start  string  `koanf:"start" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	End    string  `koanf:"end" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// Region converts the section into a domain region.
func (r RegionConfig) Region() (domain.Region, error) {
	region := domain.Region{
		Box: domain.BoundingBox{MinLat: r.MinLat, MaxLat: r.MaxLat, MinLon: r.MinLon, MaxLon: r.MaxLon},
	}
	var err error
	if r.Start != "" {
		if region.Start, err = time.Parse(time.RFC3339, r.Start); err != nil {
			return region, fmt.Errorf("invalid region start %q: %w", r.Start, err)
		}
	}
	if r.End != "" {
		if region.End, err = time.Parse(time.RFC3339, r.End); err != nil {
			return region, fmt.Errorf("invalid region end %q: %w", r.End, err)
		}
	}
	if !region.Start.IsZero() && !region.End.IsZero() && region.End.Before(region.Start) {
		return region, fmt.Errorf("region end %s is before start %s", r.End, r.Start)
	}
	return region, nil
}

// BuoysConfig lists the comparison sites and the distance thresholds applied
// around each of them.
type BuoysConfig struct {
	ThresholdsKm []float64  `koanf:"thresholds_km" validate:"dive,gt=0"`
	Sites        []BuoySite `koanf:"sites" validate:"dive"`
}

// BuoySite is a fixed observation point.
type BuoySite struct {
	Name string  `koanf:"name" validate:"required"`
	Lat  float64 `koanf:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `koanf:"lon" validate:"gte=-180,lte=360"`
}

// defaultConfig returns the built-in defaults, overridden by file and env.
func defaultConfig() *Config {
	akara := domain.AkaraRegion()
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			RateLimit: RateLimitConfig{
				Enabled:  true,
				Requests: 60,
				Window:   time.Minute,
			},
		},
		Data: DataConfig{
			ERA5Variable:      "swh",
			ERA5Backend:       "cgo",
			SatelliteVariable: "VAVH",
		},
		Match: MatchConfig{
			MaxDistanceKm:   matcher.DefaultMaxDistanceKm,
			MaxTime:         matcher.DefaultMaxTime,
			Sampling:        string(matcher.SamplingNearest),
			BruteForceBelow: spatial.DefaultBruteForceBelow,
		},
		Spectra: SpectraConfig{
			Format:             "swim",
			WindSeaThresholdHz: domain.DefaultWindSeaThresholdHz,
		},
		Region: RegionConfig{
			MinLat: akara.Box.MinLat,
			MaxLat: akara.Box.MaxLat,
			MinLon: akara.Box.MinLon,
			MaxLon: akara.Box.MaxLon,
			Start:  akara.Start.Format(time.RFC3339),
			End:    akara.End.Format(time.RFC3339),
		},
		Buoys: BuoysConfig{
			ThresholdsKm: []float64{5, 10, 20, 50},
			Sites: []BuoySite{
				{Name: "Itaguai-RJ", Lat: -23.48, Lon: -43.98},
				{Name: "Santos-SP", Lat: -25.70, Lon: -45.14},
				{Name: "Florianopolis-SC", Lat: -27.40, Lon: -47.27},
				{Name: "B1", Lat: -30.00, Lon: -40.00},
				{Name: "B2", Lat: -25.00, Lon: -37.50},
			},
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
