// Package main reduces an hourly ERA5 wave field to daily means and writes the
// result as NetCDF.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.ngs.io/waves-api/internal/adapter/store/era5"
	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
)

func main() {
	in := flag.String("in", "", "Hourly ERA5 NetCDF file")
	out := flag.String("out", "", "Output NetCDF file for the daily means")
	variable := flag.String("variable", "swh", "ERA5 variable name")
	backend := flag.String("backend", string(era5.BackendCgo), "NetCDF reader: cgo or native")
	region := flag.String("region", "all", "Subset: akara or all")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "Usage: era5-daily -in <hourly.nc> -out <daily.nc> [-variable swh -backend cgo -region akara]")
		os.Exit(2)
	}

	var box domain.BoundingBox
	switch *region {
	case "akara":
		box = domain.AkaraRegion().Box
	case "all":
	default:
		logging.Fatal().Str("region", *region).Msg("Unknown region (use akara or all)")
	}

	store, err := era5.NewStore(era5.Backend(*backend), box)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create ERA5 store")
	}
	stack, err := store.Load(*in, *variable)
	if err != nil {
		logging.Fatal().Err(err).Str("file", *in).Msg("Failed to load field")
	}

	daily := domain.DailyMeans(stack)
	if len(daily.Times) == 0 {
		logging.Fatal().Str("file", *in).Msg("Field has no time steps")
	}
	if err := era5.WriteFile(*out, daily); err != nil {
		logging.Fatal().Err(err).Str("file", *out).Msg("Failed to write daily means")
	}

	logging.Info().
		Str("file", *out).
		Int("hours", len(stack.Times)).
		Int("days", len(daily.Times)).
		Int("cells", daily.Cells()).
		Msg("Daily means written")
}
