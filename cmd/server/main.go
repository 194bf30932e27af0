// Package main provides the waves API HTTP server.
package main

import (
	"flag"
	"fmt"

	"go.ngs.io/waves-api/internal/adapter/store"
	"go.ngs.io/waves-api/internal/adapter/store/era5"
	"go.ngs.io/waves-api/internal/adapter/store/satellite"
	"go.ngs.io/waves-api/internal/config"
	httpHandler "go.ngs.io/waves-api/internal/http"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/spectra"
	"go.ngs.io/waves-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("waves-api version %s\n", version)
		return
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.Logging)

	region, err := cfg.Region.Region()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid region")
	}

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("era5_path", cfg.Data.ERA5Path).
		Str("era5_backend", cfg.Data.ERA5Backend).
		Str("satellite_dir", cfg.Data.SatelliteDir).
		Msg("Starting Waves API server")

	// Initialize stores.
	fieldStore, err := era5.NewStore(era5.Backend(cfg.Data.ERA5Backend), region.Box)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create ERA5 store")
	}

	var observations store.ObservationLoader
	if cfg.Data.SatelliteDir != "" {
		observations = satellite.NewStore(cfg.Data.SatelliteDir, cfg.Data.SatelliteVariable)
	} else {
		logging.Warn().Msg("Satellite store disabled (no data directory configured)")
	}
	if cfg.Data.ERA5Path == "" {
		logging.Warn().Msg("ERA5 field not configured; match and buoy endpoints will return 503")
	}

	// Initialize use cases.
	matchUC := usecase.NewMatchUseCase(fieldStore, cfg.Data.ERA5Path, cfg.Data.ERA5Variable, cfg.Match.Options())
	spectraUC := usecase.NewSpectraUseCase(cfg.Spectra.WindSeaThresholdHz)
	buoyUC := usecase.NewBuoyUseCase(observations, fieldStore, cfg.Data.ERA5Path, cfg.Data.ERA5Variable,
		region, cfg.Match.MaxTime, buoys(cfg.Buoys.Sites), cfg.Buoys.ThresholdsKm)

	handler := httpHandler.NewHandler(httpHandler.HandlerDeps{
		Match:        matchUC,
		Spectra:      spectraUC,
		Buoys:        buoyUC,
		Observations: observations,
		Region:       region,
		SpectraPaths: map[string]string{
			spectra.SWIM.Name: cfg.Data.SWIMPath,
			spectra.SAR.Name:  cfg.Data.SARDir,
		},
	})

	// Setup router.
	router := httpHandler.SetupRouter(handler, cfg.Server)

	// Start server.
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Server listening")
	if err := router.Run(cfg.Server.Addr()); err != nil {
		logging.Fatal().Err(err).Msg("Failed to start server")
	}
}

func buoys(sites []config.BuoySite) []usecase.Buoy {
	out := make([]usecase.Buoy, len(sites))
	for i, s := range sites {
		out[i] = usecase.Buoy{Name: s.Name, Lat: s.Lat, Lon: s.Lon}
	}
	return out
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Waves API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  waves-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -config PATH   YAML config file (default: CONFIG_PATH or ./config.yaml)")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES (override the config file):")
	fmt.Println("  WAVES_SERVER__PORT               Server port (default: 8080)")
	fmt.Println("  WAVES_SERVER__CORS_ORIGINS       Comma-separated allowed origins (default: all origins)")
	fmt.Println("  WAVES_DATA__ERA5_PATH            ERA5 NetCDF file")
	fmt.Println("  WAVES_DATA__ERA5_BACKEND         NetCDF reader: cgo or native (default: cgo)")
	fmt.Println("  WAVES_DATA__SATELLITE_DIR        Directory of per-satellite CSV folders")
	fmt.Println("  WAVES_DATA__SWIM_PATH            CFOSAT SWIM spectra file")
	fmt.Println("  WAVES_DATA__SAR_DIR              Sentinel-1 SAR spectra directory")
	fmt.Println("  WAVES_MATCH__MAX_DISTANCE_KM     Matching radius (default: 50)")
	fmt.Println("  WAVES_MATCH__MAX_TIME            Matching time window (default: 1h)")
	fmt.Println("  WAVES_LOGGING__LEVEL             Log level (default: info)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                 Health check")
	fmt.Println("  GET  /metrics                Prometheus metrics")
	fmt.Println("  POST /v1/match               Match posted observations with the ERA5 field")
	fmt.Println("  GET  /v1/match               Match configured satellite observations")
	fmt.Println("  POST /v1/spectra             Analyse an uploaded spectrum file")
	fmt.Println("  GET  /v1/spectra             Analyse the configured spectra")
	fmt.Println("  GET  /v1/spectra/axes        Frequency and direction bins")
	fmt.Println("  GET  /v1/buoys               Configured buoys")
	fmt.Println("  GET  /v1/buoys/compare       Satellite vs ERA5 at each buoy")
	fmt.Println("  GET  /v1/field               ERA5 field metadata")
	fmt.Println()
}
