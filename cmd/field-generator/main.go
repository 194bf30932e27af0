// Package main generates a synthetic ERA5-like significant wave height field
// and matching satellite track CSVs for local testing.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.ngs.io/waves-api/internal/adapter/store/era5"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
)

// storm is a moving wave-height maximum.
type storm struct {
	Lat0, Lon0   float64 // position at the first step
	DLat, DLon   float64 // drift per hour in degrees
	PeakM        float64
	RadiusDeg    float64
	BackgroundM  float64
	SwellPeriodH float64
}

func (s storm) height(lat, lon float64, hours float64) float64 {
	cLat := s.Lat0 + s.DLat*hours
	cLon := s.Lon0 + s.DLon*hours
	d2 := (lat-cLat)*(lat-cLat) + (lon-cLon)*(lon-cLon)
	bump := s.PeakM * math.Exp(-d2/(2*s.RadiusDeg*s.RadiusDeg))
	swell := 0.3 * math.Sin(2*math.Pi*hours/s.SwellPeriodH+lat/5)
	return s.BackgroundM + bump + swell
}

func main() {
	outPath := flag.String("out", "./data/era5_synthetic.nc", "Output NetCDF file")
	satDir := flag.String("satellite-dir", "", "Also write satellite track CSVs under this directory")
	resolution := flag.Float64("resolution", 0.5, "Grid resolution in degrees")
	hours := flag.Int("hours", 24, "Number of hourly steps")
	startStr := flag.String("start", "2024-02-14T00:00:00Z", "First time step (RFC3339)")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid start time")
	}
	if *resolution <= 0 || *hours < 1 {
		logging.Fatal().Msg("resolution and hours must be positive")
	}

	box := domain.AkaraRegion().Box
	s := storm{Lat0: -35, Lon0: -45, DLat: 0.1, DLon: 0.15, PeakM: 5, RadiusDeg: 3, BackgroundM: 1.5, SwellPeriodH: 12}
	stack := generate(box, *resolution, start, *hours, s)

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		logging.Fatal().Err(err).Msg("Failed to create output directory")
	}
	if err := era5.WriteFile(*outPath, stack); err != nil {
		logging.Fatal().Err(err).Str("file", *outPath).Msg("Failed to write field")
	}
	logging.Info().
		Str("file", *outPath).
		Int("lat", len(stack.Lat)).
		Int("lon", len(stack.Lon)).
		Int("times", len(stack.Times)).
		Msg("Synthetic field written")

	if *satDir == "" {
		return
	}
	tracks := map[string]float64{"Jason-3": -48, "Sentinel-6A": -40, "SARAL": -33}
	for name, lon0 := range tracks {
		path := filepath.Join(*satDir, name, "track.csv")
		n, err := writeTrack(path, name, lon0, start, *hours, s)
		if err != nil {
			logging.Fatal().Err(err).Str("file", path).Msg("Failed to write track")
		}
		logging.Info().Str("file", path).Int("observations", n).Msg("Synthetic track written")
	}
}

func generate(box domain.BoundingBox, res float64, start time.Time, hours int, s storm) *domain.FieldStack {
	nLat := int(math.Round((box.MaxLat-box.MinLat)/res)) + 1
	nLon := int(math.Round((box.MaxLon-box.MinLon)/res)) + 1

	stack := &domain.FieldStack{
		Variable: "swh",
		Units:    "m",
		Lat:      make([]float64, nLat),
		Lon:      make([]float64, nLon),
	}
	for i := range stack.Lat {
		stack.Lat[i] = box.MinLat + float64(i)*res
	}
	for j := range stack.Lon {
		stack.Lon[j] = box.MinLon + float64(j)*res
	}

	for k := 0; k < hours; k++ {
		stack.Times = append(stack.Times, start.Add(time.Duration(k)*time.Hour))
		grid := make([][]float64, nLat)
		for i := range grid {
			grid[i] = make([]float64, nLon)
			for j := range grid[i] {
				grid[i][j] = s.height(stack.Lat[i], stack.Lon[j], float64(k))
			}
		}
		stack.Values = append(stack.Values, grid)
	}
	return stack
}

// writeTrack writes a south-to-north pass every six hours, one sample per
// 0.5° of latitude, with a small deterministic offset from the field.
func writeTrack(path, name string, lon0 float64, start time.Time, hours int, s storm) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "latitude", "longitude", "VAVH"}); err != nil {
		return 0, err
	}
	n := 0
	for h := 0; h < hours; h += 6 {
		for i := 0; i <= 40; i++ {
			lat := -44 + 0.5*float64(i)
			lon := lon0 + 0.05*float64(i)
			at := start.Add(time.Duration(h)*time.Hour + time.Duration(i)*10*time.Second)
			v := s.height(lat, lon, at.Sub(start).Hours()) * (1 + 0.05*math.Sin(float64(i)))
			if err := w.Write([]string{
				at.Format(time.RFC3339),
				strconv.FormatFloat(lat, 'f', 4, 64),
				strconv.FormatFloat(lon, 'f', 4, 64),
				strconv.FormatFloat(v, 'f', 3, 64),
			}); err != nil {
				return n, err
			}
			n++
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return n, fmt.Errorf("flush %s: %w", path, err)
	}
	return n, f.Close()
}
