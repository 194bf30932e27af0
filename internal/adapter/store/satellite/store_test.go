package satellite

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.ngs.io/waves-api/internal/domain"
)

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRead(t *testing.T) {
	in := `TIME, LATITUDE, LONGITUDE, VAVH, quality
2024-02-14T12:00:00Z, -30.5, 320.0, 3.2, 1
2024-02-14 12:00:01, -30.6, -40.1, 3.4, 1
not-a-time, -30.7, -40.2, 3.5, 1
2024-02-14 12:00:03, -30.8, -40.3, , 1
`
	obs, skipped, err := Read(strings.NewReader(in), "Jason-3", "VAVH")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(obs) != 2 || skipped != 2 {
		t.Fatalf("expected 2 observations and 2 skipped rows, got %d and %d", len(obs), skipped)
	}
	if obs[0].Lon != -40 {
		t.Errorf("longitude should be normalised to -180..180, got %v", obs[0].Lon)
	}
	if obs[0].Source != "Jason-3" || obs[0].Variable != "VAVH" {
		t.Errorf("unexpected source/variable: %+v", obs[0])
	}
	if want := time.Date(2024, 2, 14, 12, 0, 1, 0, time.UTC); !obs[1].Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, obs[1].Time)
	}
}

func TestRead_GenericValueColumn(t *testing.T) {
	in := "time,lat,lon,variable,value\n2024-02-14 00:00:00,-25,-45,swh,1.8\n"
	obs, _, err := Read(strings.NewReader(in), "CFOSAT", "VAVH")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(obs) != 1 || obs[0].Value != 1.8 || obs[0].Variable != "swh" {
		t.Errorf("unexpected observations: %+v", obs)
	}
}

func TestRead_BadHeader(t *testing.T) {
	tests := map[string]string{
		"no time":  "lat,lon,value\n",
		"no lat":   "time,lon,value\n",
		"no value": "time,lat,lon,quality\n",
		"empty":    "",
	}
	for name, in := range tests {
		if _, _, err := Read(strings.NewReader(in), "x", "VAVH"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestStore_Load(t *testing.T) {
	dir := t.TempDir()
	header := "time,latitude,longitude,VAVH\n"
	writeCSV(t, filepath.Join(dir, "Jason-3", "a.csv"), header+
		"2024-02-14 00:00:00,-30,-40,2.5\n"+
		"2024-02-14 00:00:01,10,-40,2.6\n") // outside region
	writeCSV(t, filepath.Join(dir, "Sentinel-6A", "b.csv"), header+
		"2024-02-15 06:00:00,-35,-35,4.1\n"+
		"2024-03-01 06:00:00,-35,-35,4.2\n") // outside window
	writeCSV(t, filepath.Join(dir, "Sentinel-6A", "broken.csv"), "lat,lon\n")
	writeCSV(t, filepath.Join(dir, "notes.txt"), "ignored")

	s := NewStore(dir, "VAVH")
	sats, err := s.Satellites()
	if err != nil {
		t.Fatal(err)
	}
	if len(sats) != 2 || sats[0] != "Jason-3" {
		t.Errorf("unexpected satellites: %v", sats)
	}

	obs, err := s.Load(domain.AkaraRegion())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations in region, got %d: %+v", len(obs), obs)
	}
	if obs[0].Source != "Jason-3" || obs[1].Source != "Sentinel-6A" {
		t.Errorf("unexpected sources: %s, %s", obs[0].Source, obs[1].Source)
	}

	all, err := s.Load(domain.Region{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("zero region should keep everything, got %d", len(all))
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "Jason-3"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(dir, "VAVH").Load(domain.Region{}); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := NewStore(filepath.Join(dir, "missing"), "VAVH").Load(domain.Region{}); err == nil {
		t.Error("expected error for missing directory")
	}
}
