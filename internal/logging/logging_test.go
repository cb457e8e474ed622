package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", false)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}

	logger.Debug().Int("samples", 3).Msg("advise")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line %q is not JSON: %v", buf.String(), err)
	}
	if entry["message"] != "advise" || entry["samples"] != float64(3) || entry["level"] != "debug" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "WARN", false)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %q", buf.String())
	}
}

func TestNewDefaultsToInfo(t *testing.T) {
	logger, err := New(&bytes.Buffer{}, "", true)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", logger.GetLevel())
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "chatty", false); err == nil {
		t.Error("New() accepted an unknown level")
	}

	var buf bytes.Buffer
	logger := MustNew(&buf, "chatty", false)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("MustNew level = %v, want info", logger.GetLevel())
	}
	if buf.Len() == 0 {
		t.Error("MustNew did not warn about the bad level")
	}
}
