// Package main integrates SWIM or SAR directional wave spectra into wave
// height, peak period and direction, split into wind sea and swell.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"go.ngs.io/waves-api/internal/config"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/spectra"
	"go.ngs.io/waves-api/internal/usecase"
)

func main() {
	defaults := config.Default()

	var (
		path        string
		formatName  string
		thresholdHz float64
		region      string
		out         string
		asJSON      bool
		withSpectra bool
	)
	flag.StringVar(&path, "path", "", "Spectra file, directory or http(s) URL")
	flag.StringVar(&formatName, "format", defaults.Spectra.Format, "Spectra layout: swim or sar")
	flag.Float64Var(&thresholdHz, "threshold_hz", defaults.Spectra.WindSeaThresholdHz, "Wind sea / swell split frequency in Hz")
	flag.StringVar(&region, "region", "all", "Keep records in region: akara or all")
	flag.StringVar(&out, "out", "", "Write per-record parameters to this CSV file")
	flag.BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	flag.BoolVar(&withSpectra, "spectra", false, "Include 1-D frequency and direction spectra in JSON output")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: spectra-analyze -path <file|dir|url> [-format swim|sar -threshold_hz 0.13 -out params.csv -json]")
		os.Exit(2)
	}

	format, err := spectra.FormatByName(formatName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var r domain.Region
	switch region {
	case "akara":
		r = domain.AkaraRegion()
	case "all":
	default:
		fmt.Fprintf(os.Stderr, "unknown region %q (use akara or all)\n", region)
		os.Exit(2)
	}

	uc := usecase.NewSpectraUseCase(thresholdHz)
	resp, err := uc.Execute(usecase.SpectraRequest{
		Path:           path,
		Format:         format,
		Region:         r,
		IncludeSpectra: withSpectra,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to analyse spectra: %v\n", err)
		os.Exit(1)
	}

	if out != "" {
		if err := writeRecords(out, resp.Records); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", out, err)
			os.Exit(1)
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p, s := resp.Parse, resp.Summary
	fmt.Printf("Format: %s (threshold %.3f Hz)\n", resp.Format, resp.ThresholdHz)
	fmt.Printf("Records: %d parsed, %d kept, %d outside region\n", p.Records, s.Count, resp.OutsideRegion)
	fmt.Printf("Skipped blocks: %d, malformed headers: %d, skipped files: %d\n", p.SkippedBlocks, p.MalformedHeaders, p.SkippedFiles)
	if s.Count == 0 {
		return
	}
	fmt.Printf("Period: %s to %s\n", s.First, s.Last)
	fmt.Printf("Hs mean/max [m]:     %.3f / %.3f\n", s.MeanHs, s.MaxHs)
	fmt.Printf("Hs wind sea [m]:     %.3f\n", s.MeanHsWindSea)
	fmt.Printf("Hs swell [m]:        %.3f\n", s.MeanHsSwell)
	fmt.Printf("Swell energy share:  %.3f\n", s.MeanSwellFraction)
	fmt.Printf("Tp mean [s]:         %.2f\n", s.MeanTp)
}

func writeRecords(path string, recs []usecase.SpectrumRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time", "lat", "lon", "swh_total", "tp", "mean_dir", "dir_spread", "swh_wind_sea", "swh_swell", "swell_fraction"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		p := r.Integrated
		row := []string{
			r.Time.Format(time.RFC3339),
			ftoa(r.Lat), ftoa(r.Lon),
			ftoa(p.Hs), ftoa(p.Tp), ftoa(p.MeanDirDeg), ftoa(p.SpreadDeg),
			ftoa(p.HsWindSea), ftoa(p.HsSwell), ftoa(p.SwellFraction),
		}
		if err := w.Write(row); err != nil {
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
