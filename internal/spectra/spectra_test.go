package spectra

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.ngs.io/waves-api/internal/domain"
)

// energy is a deterministic, recognisable value for bin (i, j).
func energy(i, j int) float64 {
	return float64(i) + float64(j)/100
}

// block writes one record. cols controls the number of values per row.
func block(sb *strings.Builder, header string, rows, cols int) {
	sb.WriteString(header + "\n")
	for i := 0; i < rows; i++ {
		vals := make([]string, cols)
		for j := range vals {
			vals[j] = fmt.Sprintf("%.2f", energy(i, j))
		}
		sb.WriteString(strings.Join(vals, " ") + "\n")
	}
}

const (
	swimHeader = "202402141230 -40.50 -30.25 1.5 12.0"
	sarHeader  = "202402150600 -42.00 -28.00 1.0 2.0 3.0 4.0 5.0"
)

func TestParse_SingleBlock(t *testing.T) {
	var sb strings.Builder
	block(&sb, swimHeader, 30, 24)

	specs, stats, err := Parse(strings.NewReader(sb.String()), SWIM)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 1 || stats.Records != 1 {
		t.Fatalf("expected exactly one record, got %d (%+v)", len(specs), stats)
	}

	s := specs[0]
	if want := time.Date(2024, 2, 14, 12, 30, 0, 0, time.UTC); !s.Time.Equal(want) {
		t.Errorf("time: expected %v, got %v", want, s.Time)
	}
	if s.Lon != -40.5 || s.Lat != -30.25 {
		t.Errorf("position: got lon %v lat %v", s.Lon, s.Lat)
	}
	if len(s.Params) != 2 || s.Params[0] != 1.5 || s.Params[1] != 12 {
		t.Errorf("params: got %v", s.Params)
	}
	for i := 0; i < domain.NumFrequencies; i++ {
		for j := 0; j < domain.NumDirections; j++ {
			if s.Energy[i][j] != energy(i, j) {
				t.Fatalf("energy[%d][%d]: expected %v, got %v", i, j, energy(i, j), s.Energy[i][j])
			}
		}
	}
}

func TestParse_PadAndTruncate(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(swimHeader + "\n")
	for i := 0; i < 30; i++ {
		switch {
		case i == 0:
			sb.WriteString("1 2 3\n") // short row
		case i == 1:
			vals := make([]string, 30) // long row
			for j := range vals {
				vals[j] = "7"
			}
			sb.WriteString(strings.Join(vals, " ") + "\n")
		case i == 2:
			sb.WriteString("\n") // empty SWIM row is all zeros
		default:
			sb.WriteString(strings.Repeat("0.5 ", 24) + "\n")
		}
	}

	specs, _, err := Parse(strings.NewReader(sb.String()), SWIM)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected one record, got %d", len(specs))
	}
	e := specs[0].Energy
	if e[0][2] != 3 || e[0][3] != 0 || e[0][23] != 0 {
		t.Errorf("short row not zero-padded: %v", e[0])
	}
	if e[1][23] != 7 {
		t.Errorf("long row not truncated to 24: %v", e[1])
	}
	if e[2][0] != 0 || e[3][0] != 0.5 {
		t.Errorf("unexpected rows: %v / %v", e[2], e[3])
	}
}

func TestParse_MultipleBlocksWithNoise(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# CFOSAT SWIM L2 wave spectra\n")
	sb.WriteString("stray line\n")
	block(&sb, swimHeader, 30, 24)
	sb.WriteString("\n")
	block(&sb, "202402141300 -41.00 -31.00 2.0 10.0", 30, 24)

	specs, stats, err := Parse(strings.NewReader(sb.String()), SWIM)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected two records, got %d (%+v)", len(specs), stats)
	}
	if specs[1].Lat != -31 {
		t.Errorf("second record: got lat %v", specs[1].Lat)
	}
	if stats.SkippedBlocks != 0 || stats.MalformedHeaders != 0 {
		t.Errorf("unexpected skips: %+v", stats)
	}
}

func TestParse_ShortBlockIsSkipped(t *testing.T) {
	var sb strings.Builder
	block(&sb, swimHeader, 12, 24) // damaged: only 12 rows
	block(&sb, "202402141300 -41.00 -31.00 2.0 10.0", 30, 24)
	block(&sb, "202402141330 -41.50 -31.50 2.0 10.0", 20, 24) // truncated at EOF

	specs, stats, err := Parse(strings.NewReader(sb.String()), SWIM)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected only the complete record, got %d", len(specs))
	}
	if specs[0].Lat != -31 {
		t.Errorf("expected the 13:00 record, got lat %v", specs[0].Lat)
	}
	if stats.SkippedBlocks != 2 {
		t.Errorf("expected 2 skipped blocks, got %+v", stats)
	}
}

func TestParse_SWIMNonNumericRowRejectsBlock(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(swimHeader + "\n")
	for i := 0; i < 30; i++ {
		if i == 10 {
			sb.WriteString("0.1 0.2 n/a 0.4\n")
			continue
		}
		sb.WriteString(strings.Repeat("0.1 ", 24) + "\n")
	}

	specs, stats, err := Parse(strings.NewReader(sb.String()), SWIM)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 0 || stats.SkippedBlocks != 1 {
		t.Errorf("expected the block to be skipped, got %d records (%+v)", len(specs), stats)
	}
}

func TestParse_SAR(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(sarHeader + "\n")
	for i := 0; i < 30; i++ {
		if i == 4 {
			// Values stop at the first non-numeric token.
			sb.WriteString("1.5 2.5 flag 9.9\n")
			continue
		}
		sb.WriteString(strings.Repeat("0.25 ", 24) + "\n")
	}

	specs, stats, err := Parse(strings.NewReader(sb.String()), SAR)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected one SAR record, got %d (%+v)", len(specs), stats)
	}
	s := specs[0]
	if len(s.Params) != 5 || s.Params[4] != 5 {
		t.Errorf("expected 5 params, got %v", s.Params)
	}
	if s.Energy[4][0] != 1.5 || s.Energy[4][1] != 2.5 || s.Energy[4][2] != 0 {
		t.Errorf("row 4: got %v", s.Energy[4])
	}
}

func TestParse_SAREmptyRowDoesNotCount(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(sarHeader + "\n")
	for i := 0; i < 30; i++ {
		if i == 7 {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(strings.Repeat("0.25 ", 24) + "\n")
	}

	specs, stats, err := Parse(strings.NewReader(sb.String()), SAR)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 0 || stats.SkippedBlocks != 1 {
		t.Errorf("expected block with an empty row to be skipped, got %d (%+v)", len(specs), stats)
	}
}

func TestParse_SWIMHeaderIsNotSARHeader(t *testing.T) {
	var sb strings.Builder
	block(&sb, swimHeader, 30, 24)

	specs, _, err := Parse(strings.NewReader(sb.String()), SAR)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// A 5-token header is too short for SAR, but every 24-value row with an
	// integer-led first token is not a timestamp either.
	if len(specs) != 0 {
		t.Errorf("expected no SAR records from a SWIM block, got %d", len(specs))
	}
}

func TestParse_MalformedHeader(t *testing.T) {
	var sb strings.Builder
	block(&sb, "202413991230 -40.50 -30.25 1.5 12.0", 30, 24) // month 13

	specs, stats, err := Parse(strings.NewReader(sb.String()), SWIM)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs) != 0 || stats.MalformedHeaders != 1 {
		t.Errorf("expected one malformed header, got %d records (%+v)", len(specs), stats)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()

	var a, b strings.Builder
	block(&a, sarHeader, 30, 24)
	block(&b, "202402151200 -43.00 -29.00 1 2 3 4 5", 30, 24)
	block(&b, "202402151300 -43.50 -29.50 1 2 3 4 5", 10, 24)

	writeFile(t, filepath.Join(dir, "SAR_002.txt"), b.String())
	writeFile(t, filepath.Join(dir, "SAR_001.txt"), a.String())
	writeFile(t, filepath.Join(dir, "README"), "not a spectra file\n")
	if err := os.Mkdir(filepath.Join(dir, "SAR_dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	specs, stats, err := ParseDir(dir, SAR)
	if err != nil {
		t.Fatalf("ParseDir: %v", err)
	}
	if stats.Files != 2 || len(specs) != 2 || stats.SkippedBlocks != 1 {
		t.Fatalf("expected 2 files, 2 records, 1 skipped block, got %d records (%+v)", len(specs), stats)
	}
	// Files are read in name order.
	if specs[0].Lat != -28 || specs[1].Lat != -29 {
		t.Errorf("unexpected order: %v, %v", specs[0].Lat, specs[1].Lat)
	}
}

func TestParseDir_Empty(t *testing.T) {
	_, _, err := ParseDir(t.TempDir(), SAR)
	if !errors.Is(err, domain.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestParseFile_HTTP(t *testing.T) {
	var sb strings.Builder
	block(&sb, swimHeader, 30, 24)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/SWI_WV1.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sb.String()))
	}))
	defer srv.Close()

	specs, stats, err := ParseFile(srv.URL+"/SWI_WV1.txt", SWIM)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(specs) != 1 || stats.Files != 1 {
		t.Errorf("expected one record from one file, got %d (%+v)", len(specs), stats)
	}

	if _, _, err := ParseFile(srv.URL+"/missing", SWIM); err == nil {
		t.Error("expected error for HTTP 404")
	}
}

func TestLoad_DispatchesOnPath(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	block(&sb, swimHeader, 30, 24)
	path := filepath.Join(dir, "SWI_WV1.txt")
	writeFile(t, path, sb.String())

	if specs, _, err := Load(path, SWIM); err != nil || len(specs) != 1 {
		t.Errorf("file: expected 1 record, got %d (%v)", len(specs), err)
	}
	if specs, _, err := Load(dir, SWIM); err != nil || len(specs) != 1 {
		t.Errorf("dir: expected 1 record, got %d (%v)", len(specs), err)
	}
}

func TestFormatByName(t *testing.T) {
	if f, err := FormatByName("SAR"); err != nil || f.Name != "sar" {
		t.Errorf("expected sar format, got %+v (%v)", f, err)
	}
	if _, err := FormatByName("grib"); err == nil {
		t.Error("expected error for unknown format")
	}
}
