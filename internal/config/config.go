// Package config loads deepmoo settings from a YAML file, a .env file and the
// process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/deepmoo/pkg/engine"
)

// Environment variables that override the file settings.
const (
	EnvHost     = "DEEPMOO_HOST"
	EnvPort     = "DEEPMOO_PORT"
	EnvLogLevel = "DEEPMOO_LOG_LEVEL"
	EnvWorkers  = "DEEPMOO_WORKERS"
)

// Config is the complete configuration.
type Config struct {
	Rules  engine.Rules `yaml:"rules"`
	Engine EngineConfig `yaml:"engine"`
	Server ServerConfig `yaml:"server"`
}

// EngineConfig holds the advisor defaults.
type EngineConfig struct {
	Trials    int    `yaml:"trials"`     // estimator trials
	Samples   int    `yaml:"samples"`    // advisor samples
	Workers   int    `yaml:"workers"`    // 0 = GOMAXPROCS
	Seed      uint64 `yaml:"seed"`       // 0 = random
	CacheSize int    `yaml:"cache_size"` // distribution cache entries, negative disables
}

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxFastWorkers int           `yaml:"max_fast_workers"`
	MaxSlowWorkers int           `yaml:"max_slow_workers"`
	LogLevel       string        `yaml:"log_level"`
	LogPretty      bool          `yaml:"log_pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Rules: engine.DefaultRules(),
		Engine: EngineConfig{
			Trials:    engine.DefaultEstimateTrials,
			Samples:   engine.DefaultAdviseSamples,
			CacheSize: engine.DefaultCacheSize,
		},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   5 * time.Minute,
			IdleTimeout:    60 * time.Second,
			MaxFastWorkers: 100,
			MaxSlowWorkers: 4,
			LogLevel:       "info",
		},
	}
}

// Load reads the YAML file at path (skipped when empty) over the defaults,
// loads envFile into the environment when it exists (".env" when empty) and
// applies the environment overrides. The resulting rules are validated.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides settings from DEEPMOO_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvHost); ok {
		c.Server.Host = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Server.LogLevel = v
	}
	if err := envInt(EnvPort, &c.Server.Port); err != nil {
		return err
	}
	return envInt(EnvWorkers, &c.Engine.Workers)
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
