// Command era5-compare collocates satellite altimetry observations with an
// ERA5 wave field and reports bias, RMSE and correlation of the matched pairs.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"go.ngs.io/waves-api/internal/adapter/store/era5"
	"go.ngs.io/waves-api/internal/adapter/store/satellite"
	"go.ngs.io/waves-api/internal/config"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/matcher"
	"go.ngs.io/waves-api/internal/usecase"
)

func main() {
	defaults := config.Default()

	era5Path := flag.String("era5", defaults.Data.ERA5Path, "ERA5 NetCDF file")
	variable := flag.String("variable", defaults.Data.ERA5Variable, "ERA5 variable name")
	backend := flag.String("backend", defaults.Data.ERA5Backend, "NetCDF reader: cgo or native")
	satDir := flag.String("satellite-dir", defaults.Data.SatelliteDir, "Directory with one CSV folder per satellite")
	satVar := flag.String("satellite-variable", defaults.Data.SatelliteVariable, "Satellite CSV value column")
	maxDist := flag.Float64("max-distance-km", defaults.Match.MaxDistanceKm, "Maximum pair distance in km")
	maxTime := flag.Duration("max-time", defaults.Match.MaxTime, "Maximum pair time offset")
	dedup := flag.Bool("dedup", defaults.Match.Dedup, "Keep the closest pair per satellite and hour")
	sampling := flag.String("sampling", defaults.Match.Sampling, "Grid sampling: nearest or bilinear")
	region := flag.String("region", "akara", "Study region: akara or all")
	out := flag.String("out", "", "Write matched pairs to this CSV file")
	asJSON := flag.Bool("json", false, "Print the full result as JSON")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console"})

	if *era5Path == "" || *satDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: era5-compare -era5 <file.nc> -satellite-dir <dir> [-max-distance-km 50 -max-time 1h -sampling nearest -out pairs.csv]")
		os.Exit(2)
	}

	var r domain.Region
	switch *region {
	case "akara":
		r = domain.AkaraRegion()
	case "all":
	default:
		logging.Fatal().Str("region", *region).Msg("Unknown region (use akara or all)")
	}

	fields, err := era5.NewStore(era5.Backend(*backend), r.Box)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create ERA5 store")
	}
	obs, err := satellite.NewStore(*satDir, *satVar).Load(r)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", *satDir).Msg("Failed to load satellite observations")
	}

	uc := usecase.NewMatchUseCase(fields, *era5Path, *variable, matcher.Options{
		MaxDistanceKm: *maxDist,
		MaxTime:       *maxTime,
		DedupHourly:   *dedup,
		Sampling:      matcher.Sampling(*sampling),
	})
	resp, err := uc.Execute(usecase.MatchRequest{Observations: obs, Region: r})
	if err != nil {
		logging.Fatal().Err(err).Msg("Match failed")
	}

	if *out != "" {
		if err := writePairs(*out, resp.Pairs); err != nil {
			logging.Fatal().Err(err).Str("file", *out).Msg("Failed to write pairs")
		}
		logging.Info().Str("file", *out).Int("pairs", len(resp.Pairs)).Msg("Pairs written")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			logging.Fatal().Err(err).Msg("Failed to encode result")
		}
		return
	}
	printSummary(resp)
}

func printSummary(resp *usecase.MatchResponse) {
	c := resp.Counts
	fmt.Printf("Observations: %d (outside region %d, invalid %d, unmatched %d, duplicates %d)\n",
		c.Input, c.OutsideRegion, c.Skipped, c.Unmatched, c.Duplicates)
	fmt.Printf("Matched pairs: %d\n", c.Matched)
	if resp.Stats == nil {
		fmt.Println("Not enough pairs for statistics.")
		return
	}
	printStats("All", *resp.Stats)

	names := make([]string, 0, len(resp.BySource))
	for name := range resp.BySource {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printStats(name, resp.BySource[name])
	}
}

func printStats(label string, s domain.ComparisonStats) {
	fmt.Printf("\n%s (n=%d)\n", label, s.N)
	fmt.Printf("  Bias (model-obs) [m]: %.3f\n", s.Bias)
	fmt.Printf("  RMSE [m]:             %.3f\n", s.RMSE)
	fmt.Printf("  Scatter index:        %.3f\n", s.ScatterIndex)
	fmt.Printf("  Correlation:          %.3f\n", s.Correlation)
	fmt.Printf("  Fit: mod = %.3f * obs + %.3f (R2 %.3f)\n", s.Slope, s.Intercept, s.RSquared)
}

func writePairs(path string, pairs []usecase.PairView) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"source", "time", "lat", "lon", "observed",
		"grid_time", "grid_lat", "grid_lon", "modeled", "distance_km", "time_offset_hours",
	}); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := w.Write([]string{
			p.Source,
			p.Time.Format(time.RFC3339),
			ftoa(p.Lat), ftoa(p.Lon), ftoa(p.Observed),
			p.GridTime.Format(time.RFC3339),
			ftoa(p.GridLat), ftoa(p.GridLon), ftoa(p.Modeled),
			ftoa(p.DistanceKm), ftoa(p.TimeOffsetHours),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
