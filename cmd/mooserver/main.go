// Command mooserver runs the deepmoo REST API server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/yourusername/deepmoo/internal/config"
	"github.com/yourusername/deepmoo/internal/logging"
	"github.com/yourusername/deepmoo/pkg/api"
	"github.com/yourusername/deepmoo/pkg/engine"
)

const version = "0.1.0"

func main() {
	configFile := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "Environment file with DEEPMOO_* overrides")
	host := flag.String("host", "", "Host to bind to (overrides config, use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	pretty := flag.Bool("pretty", false, "Human readable logs")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("deepmoo API Server v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = *logLevel
	}

	logger, err := logging.New(os.Stderr, cfg.Server.LogLevel, *pretty || cfg.Server.LogPretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	eng, err := engine.NewEngine(engine.EngineOptions{
		Rules:     &cfg.Rules,
		CacheSize: cfg.Engine.CacheSize,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create engine")
	}

	server := api.NewServer(eng, api.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxFastWorkers: cfg.Server.MaxFastWorkers,
		MaxSlowWorkers: cfg.Server.MaxSlowWorkers,
		Defaults: engine.AdviseOptions{
			Trials:  cfg.Engine.Trials,
			Samples: cfg.Engine.Samples,
			Workers: cfg.Engine.Workers,
			Seed:    cfg.Engine.Seed,
		},
	}, version, logger)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
