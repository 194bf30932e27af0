// Package main compares satellite observations around fixed buoy sites with
// the ERA5 series at each site for several distance thresholds.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"go.ngs.io/waves-api/internal/adapter/store/era5"
	"go.ngs.io/waves-api/internal/adapter/store/satellite"
	"go.ngs.io/waves-api/internal/config"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/usecase"
)

type summaryEntry struct {
	Buoy        string                  `json:"buoy"`
	ThresholdKm float64                 `json:"threshold_km"`
	Pairs       int                     `json:"pairs"`
	WithModel   int                     `json:"with_model"`
	Stats       *domain.ComparisonStats `json:"stats,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "YAML config with data paths and buoy sites (default: built-in sites)")
	era5Path := flag.String("era5", "", "ERA5 NetCDF file (overrides config)")
	satDir := flag.String("satellite-dir", "", "Satellite CSV directory (overrides config)")
	outDir := flag.String("out_dir", "buoys", "Output directory for CSV files")
	summaryOut := flag.String("summary_out", "", "Summary JSON (default: <out_dir>/summary.json)")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			exitErr(err)
		}
	}
	if *era5Path != "" {
		cfg.Data.ERA5Path = *era5Path
	}
	if *satDir != "" {
		cfg.Data.SatelliteDir = *satDir
	}
	if cfg.Data.ERA5Path == "" || cfg.Data.SatelliteDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: buoy-compare -era5 <file.nc> -satellite-dir <dir> [-config waves.yaml -out_dir buoys]")
		os.Exit(2)
	}

	region, err := cfg.Region.Region()
	if err != nil {
		exitErr(err)
	}
	fields, err := era5.NewStore(era5.Backend(cfg.Data.ERA5Backend), region.Box)
	if err != nil {
		exitErr(err)
	}

	sites := make([]usecase.Buoy, len(cfg.Buoys.Sites))
	for i, s := range cfg.Buoys.Sites {
		sites[i] = usecase.Buoy{Name: s.Name, Lat: s.Lat, Lon: s.Lon}
	}
	uc := usecase.NewBuoyUseCase(
		satellite.NewStore(cfg.Data.SatelliteDir, cfg.Data.SatelliteVariable),
		fields, cfg.Data.ERA5Path, cfg.Data.ERA5Variable,
		region, cfg.Match.MaxTime, sites, cfg.Buoys.ThresholdsKm,
	)

	results, err := uc.Execute()
	if err != nil {
		exitErr(err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		exitErr(err)
	}

	summary := make([]summaryEntry, 0, len(results)*len(uc.ThresholdsKm()))
	for idx, res := range results {
		slug := slugify(res.Buoy.Name)
		if err := writeSeries(filepath.Join(*outDir, slug+"_era5.csv"), res.Series); err != nil {
			exitErr(err)
		}
		for _, th := range res.Thresholds {
			name := fmt.Sprintf("%s_%gkm.csv", slug, th.ThresholdKm)
			if err := writePairs(filepath.Join(*outDir, name), th.Pairs); err != nil {
				exitErr(err)
			}
			entry := summaryEntry{Buoy: res.Buoy.Name, ThresholdKm: th.ThresholdKm, Pairs: len(th.Pairs), Stats: th.Stats}
			for _, p := range th.Pairs {
				if p.HasModel {
					entry.WithModel++
				}
			}
			summary = append(summary, entry)
		}
		fmt.Printf("[%d/%d] %s: grid cell (%.2f, %.2f) at %.1f km, %d model steps\n",
			idx+1, len(results), res.Buoy.Name, res.GridLat, res.GridLon, res.GridDistanceKm, len(res.Series))
	}

	if *summaryOut == "" {
		*summaryOut = filepath.Join(*outDir, "summary.json")
	}
	if err := writeJSON(*summaryOut, summary); err != nil {
		exitErr(err)
	}
	fmt.Printf("Saved %d buoy/threshold summaries -> %s\n", len(summary), *summaryOut)
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

func writeSeries(path string, series []usecase.SeriesPoint) error {
	rows := make([][]string, 0, len(series)+1)
	rows = append(rows, []string{"time", "value"})
	for _, p := range series {
		rows = append(rows, []string{p.Time.Format(time.RFC3339), ftoa(p.Value)})
	}
	return writeCSV(path, rows)
}

func writePairs(path string, pairs []usecase.BuoyPair) error {
	rows := make([][]string, 0, len(pairs)+1)
	rows = append(rows, []string{"source", "time", "lat", "lon", "distance_km", "observed", "modeled"})
	for _, p := range pairs {
		modeled := ""
		if p.HasModel {
			modeled = ftoa(p.Modeled)
		}
		rows = append(rows, []string{
			p.Source, p.Time.Format(time.RFC3339),
			ftoa(p.Lat), ftoa(p.Lon), ftoa(p.DistanceKm), ftoa(p.Observed), modeled,
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
