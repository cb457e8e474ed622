package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/deepmoo/pkg/engine"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, engine.DefaultRules(), cfg.Rules)
	assert.Equal(t, engine.DefaultEstimateTrials, cfg.Engine.Trials)
	assert.Equal(t, engine.DefaultAdviseSamples, cfg.Engine.Samples)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, 4, cfg.Server.MaxSlowWorkers)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "deepmoo.yaml", `
rules:
  min_card_idx: 1
  max_card_idx: 10
  max_row_len: 3
  hand_len: 2
  row_count: 2
engine:
  samples: 500
  seed: 42
server:
  port: 9000
  read_timeout: 5s
`)
	cfg, err := Load(path, missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Rules.MaxCardIdx)
	assert.Equal(t, 500, cfg.Engine.Samples)
	assert.Equal(t, uint64(42), cfg.Engine.Seed)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 9000, cfg.Server.Port)

	// untouched fields keep their defaults
	assert.Equal(t, engine.DefaultEstimateTrials, cfg.Engine.Trials)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoadInvalidRules(t *testing.T) {
	path := writeFile(t, "bad.yaml", "rules:\n  hand_len: 0\n")
	_, err := Load(path, missingEnv(t))
	assert.True(t, errors.Is(err, engine.ErrInvalidRules), "err = %v", err)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "engine: [1, 2\n")
	_, err := Load(path, missingEnv(t))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), missingEnv(t))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvHost, "0.0.0.0")
	t.Setenv(EnvPort, "9999")
	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("", missingEnv(t))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Addr())
	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestEnvBadPort(t *testing.T) {
	t.Setenv(EnvPort, "http")
	_, err := Load("", missingEnv(t))
	assert.Error(t, err)
}

func TestDotEnvFile(t *testing.T) {
	// t.Setenv restores the variable godotenv sets; Load only fills unset ones.
	t.Setenv(EnvWorkers, "")
	os.Unsetenv(EnvWorkers)

	envFile := writeFile(t, "test.env", EnvWorkers+"=6\n")
	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Engine.Workers)
}
