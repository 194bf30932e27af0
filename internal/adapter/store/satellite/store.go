// Package satellite loads along-track altimetry observations from CSV files,
// one subdirectory per mission:
//
//	<dir>/Jason-3/*.csv
//	<dir>/Sentinel-6A/*.csv
//
// Each file has a header naming at least time, latitude and longitude columns,
// plus the measured variable (by name) or a generic value column.
package satellite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
)

// Store reads satellite CSV files from a directory tree.
type Store struct {
	dataDir  string
	variable string
}

// NewStore creates a store. variable names the value column (e.g. VAVH or swh).
func NewStore(dataDir, variable string) *Store {
	return &Store{dataDir: dataDir, variable: variable}
}

// Satellites lists the mission subdirectories in name order.
func (s *Store) Satellites() ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	sats := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			sats = append(sats, e.Name())
		}
	}
	sort.Strings(sats)
	return sats, nil
}

// Load reads every CSV of every satellite and keeps the observations inside
// region. Unreadable files are skipped with a warning; finding no files at all
// is domain.ErrNoData.
func (s *Store) Load(region domain.Region) ([]domain.Observation, error) {
	sats, err := s.Satellites()
	if err != nil {
		return nil, err
	}

	var (
		out   []domain.Observation
		files int
	)
	for _, sat := range sats {
		paths, err := filepath.Glob(filepath.Join(s.dataDir, sat, "*.csv"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
		for _, path := range paths {
			obs, skipped, err := s.LoadFile(path, sat)
			if err != nil {
				logging.Warn().Err(err).Str("file", path).Msg("Skipping unreadable satellite file")
				continue
			}
			if skipped > 0 {
				logging.Warn().Str("file", path).Int("rows", skipped).Msg("Skipped unparseable rows")
			}
			files++
			for _, o := range obs {
				if region.Contains(o.Lat, o.Lon, o.Time) {
					out = append(out, o)
				}
			}
		}
	}

	if files == 0 {
		return nil, fmt.Errorf("%w: no satellite CSV files under %s", domain.ErrNoData, s.dataDir)
	}
	logging.Info().Int("files", files).Int("observations", len(out)).Msg("Loaded satellite observations")
	return out, nil
}

// LoadFile reads one CSV file attributed to source.
//
//nolint:gosec // G304: path is built from the configured data directory.
func (s *Store) LoadFile(path, source string) ([]domain.Observation, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f, source, s.variable)
}

// Read decodes observations from r. Column names are matched case-insensitively
// and extra columns are ignored. Rows whose time, position or value cannot be
// parsed are skipped and counted.
func Read(r io.Reader, source, variable string) ([]domain.Observation, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := resolveColumns(header, variable)
	if err != nil {
		return nil, 0, err
	}

	obs := make([]domain.Observation, 0)
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read CSV record: %w", err)
		}

		o, ok := cols.parse(record)
		if !ok {
			skipped++
			continue
		}
		o.Source = source
		if o.Variable == "" {
			o.Variable = variable
		}
		obs = append(obs, o)
	}
	return obs, skipped, nil
}

type columns struct {
	time, lat, lon, value, variable int
}

func resolveColumns(header []string, variable string) (columns, error) {
	c := columns{time: -1, lat: -1, lon: -1, value: -1, variable: -1}
	for i, h := range header {
		switch name := strings.ToLower(strings.TrimSpace(h)); {
		case name == "time" || name == "datetime" || name == "valid_time":
			c.time = i
		case name == "latitude" || name == "lat":
			c.lat = i
		case name == "longitude" || name == "lon":
			c.lon = i
		case name == "variable":
			c.variable = i
		case variable != "" && name == strings.ToLower(variable):
			c.value = i
		case name == "value" && c.value < 0:
			c.value = i
		}
	}
	switch {
	case c.time < 0:
		return c, fmt.Errorf("invalid CSV header: no time column in %v", header)
	case c.lat < 0 || c.lon < 0:
		return c, fmt.Errorf("invalid CSV header: no latitude/longitude columns in %v", header)
	case c.value < 0:
		return c, fmt.Errorf("invalid CSV header: no %q or value column in %v", variable, header)
	}
	return c, nil
}

func (c columns) parse(record []string) (domain.Observation, bool) {
	var o domain.Observation
	need := max(c.time, c.lat, c.lon, c.value)
	if len(record) <= need {
		return o, false
	}

	t, err := parseTime(record[c.time])
	if err != nil {
		return o, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(record[c.lat]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(record[c.lon]), 64)
	val, err3 := strconv.ParseFloat(strings.TrimSpace(record[c.value]), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return o, false
	}

	o.Time = t
	o.Lat = lat
	o.Lon = domain.NormalizeLon180(lon)
	o.Value = val
	if c.variable >= 0 && c.variable < len(record) {
		o.Variable = strings.TrimSpace(record[c.variable])
	}
	return o, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
