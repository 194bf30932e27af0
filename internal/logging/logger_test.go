package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
}

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Warn().Str("file", "SAR_001.txt").Msg("skipped")

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"file":"SAR_001.txt"`, `"message":"skipped"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got: %s", want, out)
		}
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got: %s", buf.String())
	}
}

func TestWith_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := With().Str("run_id", "abc").Logger()
	l.Info().Msg("run")
	if !strings.Contains(buf.String(), `"run_id":"abc"`) {
		t.Errorf("expected run_id field, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}
