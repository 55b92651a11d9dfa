package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/app"
	"github.com/ternarybob/dispatch/internal/common"
)

var (
	// Command-line flags
	configFile   = flag.String("config", "", "Configuration file path")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	feedDir      = flag.String("feed", "", "Feed directory (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Dispatch version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge config flags (shorthand takes precedence)
	configPath := *configFile
	if *configFileC != "" {
		configPath = *configFileC
	}

	// Auto-discover config file if not specified
	if configPath == "" {
		if _, err := os.Stat("dispatch.toml"); err == nil {
			configPath = "dispatch.toml"
		}
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error
	config, err = common.LoadFromFile(configPath)
	if err != nil {
		// Configured logger is not up yet; fall back to the console default
		common.GetLogger().Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *feedDir)

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", configPath).
		Str("feed_dir", config.Watcher.FeedDir).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	// Initialize application
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Fail fast on unusable LLM credentials before touching the feed
	healthCtx, healthCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := application.HealthCheck(healthCtx); err != nil {
		healthCancel()
		logger.Fatal().Err(err).Msg("LLM service health check failed")
	}
	healthCancel()

	// Start watching the feed directory
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start feed watcher")
	}

	logger.Info().
		Str("feed_dir", config.Watcher.FeedDir).
		Msg("Dispatch ready - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
}
