// Package spectra decodes fixed-format directional wave spectra text files
// (CFOSAT SWIM and Sentinel-1 SAR).
//
// A record is one header line
//
//	YYYYMMDDHHMM LON LAT PARAM...
//
// followed by 30 rows (frequency bins) of up to 24 energy densities (direction bins).
package spectra

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
)

// Format describes one instrument's text layout.
type Format struct {
	Name string
	// MinHeaderTokens is the token count a line needs to be taken as a header.
	MinHeaderTokens int
	// NumParams is how many auxiliary header values follow LAT.
	NumParams int
	// StopAtNonNumeric ends a row at its first non-numeric token instead of
	// rejecting the block, and drops rows that end up empty.
	StopAtNonNumeric bool
	// FilePattern selects files in ParseDir.
	FilePattern string
}

var (
	// SWIM is the CFOSAT SWIM wave-mode layout (SWI_WV1 files).
	SWIM = Format{Name: "swim", MinHeaderTokens: 5, NumParams: 2, FilePattern: "*"}
	// SAR is the Sentinel-1 SAR wave-mode layout (SAR* files).
	SAR = Format{Name: "sar", MinHeaderTokens: 8, NumParams: 5, StopAtNonNumeric: true, FilePattern: "SAR*"}
)

// FormatByName returns the format called name (swim or sar, case-insensitive).
func FormatByName(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SWIM.Name:
		return SWIM, nil
	case SAR.Name:
		return SAR, nil
	default:
		return Format{}, fmt.Errorf("unknown spectra format %q (use swim or sar)", name)
	}
}

// timestampLayout is YYYYMMDDHHMM.
const timestampLayout = "200601021504"

// Stats counts what a parse saw besides the emitted records.
type Stats struct {
	Lines            int `json:"lines"`
	Records          int `json:"records"`
	SkippedBlocks    int `json:"skipped_blocks"`    // header found, matrix short or unreadable
	MalformedHeaders int `json:"malformed_headers"` // header-shaped line with bad fields
	Files            int `json:"files,omitempty"`
	SkippedFiles     int `json:"skipped_files,omitempty"`
}

func (s *Stats) add(o Stats) {
	s.Lines += o.Lines
	s.Records += o.Records
	s.SkippedBlocks += o.SkippedBlocks
	s.MalformedHeaders += o.MalformedHeaders
	s.Files += o.Files
	s.SkippedFiles += o.SkippedFiles
}

// Parse decodes every complete record in r. Scanning advances past a record
// after it is emitted and one line at a time otherwise, so a header inside a
// damaged block is still found. Only read failures are returned as errors.
func Parse(r io.Reader, f Format) ([]domain.Spectrum, Stats, error) {
	var stats Stats

	lines, err := readLines(r)
	if err != nil {
		return nil, stats, err
	}
	stats.Lines = len(lines)

	out := make([]domain.Spectrum, 0, len(lines)/(domain.NumFrequencies+1))
	for i := 0; i < len(lines); {
		fields := strings.Fields(lines[i])
		if !isHeader(fields, f) {
			i++
			continue
		}

		spec, err := parseHeader(fields, f)
		if err != nil {
			// Integer-led matrix rows also look like headers; only count
			// lines that carry a full-width timestamp.
			if len(fields[0]) == len(timestampLayout) {
				stats.MalformedHeaders++
			}
			i++
			continue
		}

		if err := readMatrix(lines[i+1:], f, &spec.Energy); err != nil {
			stats.SkippedBlocks++
			i++
			continue
		}

		out = append(out, spec)
		stats.Records++
		i += domain.NumFrequencies + 1
	}

	return out, stats, nil
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := make([]string, 0, 1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan spectra: %w", err)
	}
	return lines, nil
}

// isHeader reports whether a line opens a record: the first token is all
// digits and there are enough tokens.
func isHeader(fields []string, f Format) bool {
	if len(fields) < f.MinHeaderTokens || len(fields) == 0 {
		return false
	}
	for _, r := range fields[0] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// startsRecord reports whether line is a header with a valid timestamp.
func startsRecord(line string, f Format) bool {
	fields := strings.Fields(line)
	if !isHeader(fields, f) || len(fields[0]) != len(timestampLayout) {
		return false
	}
	_, err := time.ParseInLocation(timestampLayout, fields[0], time.UTC)
	return err == nil
}

func parseHeader(fields []string, f Format) (domain.Spectrum, error) {
	var s domain.Spectrum

	ts, err := time.ParseInLocation(timestampLayout, fields[0], time.UTC)
	if err != nil {
		return s, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return s, fmt.Errorf("invalid longitude %q: %w", fields[1], err)
	}
	lat, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return s, fmt.Errorf("invalid latitude %q: %w", fields[2], err)
	}

	n := f.NumParams
	if avail := len(fields) - 3; avail < n {
		n = avail
	}
	params := make([]float64, n)
	for k := 0; k < n; k++ {
		v, err := strconv.ParseFloat(fields[3+k], 64)
		if err != nil {
			return s, fmt.Errorf("invalid parameter %d %q: %w", k+1, fields[3+k], err)
		}
		params[k] = v
	}

	s.Time = ts
	s.Lon = lon
	s.Lat = lat
	s.Params = params
	return s, nil
}

// readMatrix fills e from the lines after a header. Rows are padded with zeros
// or truncated to the direction count. It fails when fewer than 30 usable rows
// are available; the next record's header ends a short matrix.
func readMatrix(rows []string, f Format, e *domain.EnergyMatrix) error {
	if len(rows) > domain.NumFrequencies {
		rows = rows[:domain.NumFrequencies]
	}

	n := 0
	for _, line := range rows {
		if startsRecord(line, f) {
			break
		}
		values, err := parseRow(line, f)
		if err != nil {
			return err
		}
		if values == nil {
			continue
		}
		for j := 0; j < domain.NumDirections && j < len(values); j++ {
			e[n][j] = values[j]
		}
		n++
	}

	if n < domain.NumFrequencies {
		return fmt.Errorf("%w: %d of %d rows", domain.ErrMalformedBlock, n, domain.NumFrequencies)
	}
	return nil
}

// parseRow returns the numeric values of one matrix row. A nil slice means the
// row does not count towards the matrix.
func parseRow(line string, f Format) ([]float64, error) {
	fields := strings.Fields(line)
	values := make([]float64, 0, domain.NumDirections)
	for _, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			if f.StopAtNonNumeric {
				break
			}
			return nil, fmt.Errorf("%w: non-numeric value %q", domain.ErrMalformedBlock, tok)
		}
		values = append(values, v)
	}
	if f.StopAtNonNumeric && len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// ParseFile parses a local file or an http(s) URL.
func ParseFile(pathOrURL string, f Format) ([]domain.Spectrum, Stats, error) {
	data, err := loadBytes(pathOrURL)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read %s: %w", pathOrURL, err)
	}
	specs, stats, err := Parse(bytes.NewReader(data), f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", pathOrURL, err)
	}
	stats.Files = 1
	return specs, stats, nil
}

// ParseDir parses every regular file in dir matching the format's pattern, in
// name order. Unreadable files are logged and skipped; a directory with no
// matching files yields domain.ErrNoData.
func ParseDir(dir string, f Format) ([]domain.Spectrum, Stats, error) {
	var total Stats

	pattern := f.FilePattern
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, total, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	var all []domain.Spectrum
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		specs, stats, err := ParseFile(path, f)
		if err != nil {
			logging.Warn().Err(err).Str("file", path).Msg("Skipping unreadable spectra file")
			total.SkippedFiles++
			continue
		}
		if stats.SkippedBlocks > 0 || stats.MalformedHeaders > 0 {
			logging.Warn().
				Str("file", path).
				Int("skipped_blocks", stats.SkippedBlocks).
				Int("malformed_headers", stats.MalformedHeaders).
				Msg("Skipped malformed spectra blocks")
		}
		total.add(stats)
		all = append(all, specs...)
	}

	if total.Files == 0 {
		return nil, total, fmt.Errorf("%w: no %s files matching %s in %s", domain.ErrNoData, f.Name, pattern, dir)
	}
	return all, total, nil
}

// Load parses path as a directory (ParseDir) or a single file/URL (ParseFile).
func Load(path string, f Format) ([]domain.Spectrum, Stats, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return ParseDir(path, f)
	}
	return ParseFile(path, f)
}

func loadBytes(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, http.NoBody)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
		return io.ReadAll(resp.Body)
	}
	//nolint:gosec // G304: path comes from configuration or the command line.
	return os.ReadFile(path)
}
