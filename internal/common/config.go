package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Storage     StorageConfig     `toml:"storage"`
	Watcher     WatcherConfig     `toml:"watcher"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Distributor DistributorConfig `toml:"distributor"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Claude      ClaudeConfig      `toml:"claude"`
	LLM         LLMConfig         `toml:"llm"`
	Logging     LoggingConfig     `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// WatcherConfig controls the feed directory scan
type WatcherConfig struct {
	FeedDir    string   `toml:"feed_dir"`   // Directory polled for new artifacts
	Schedule   string   `toml:"schedule"`   // Cron schedule for feed scans
	Extensions []string `toml:"extensions"` // Artifact extensions to pick up (default: [".txt"])
}

// PipelineConfig controls stage execution
type PipelineConfig struct {
	StageTimeout string `toml:"stage_timeout"` // Per-stage deadline as duration string (default: "2m")
}

// DistributorConfig controls recipient fan-out and quarantine locations
type DistributorConfig struct {
	RecipientsDir string `toml:"recipients_dir"` // Root of per-recipient delivery directories
	ErrorDir      string `toml:"error_dir"`      // Quarantine directory for failed artifacts
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for classification calls (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between requests (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for classification calls (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between requests (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
}

// LLMConfig selects the provider used for all stage generation calls
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in dispatch.toml; technical
// parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/db",
			},
		},
		Watcher: WatcherConfig{
			FeedDir:    "./data/feed",
			Schedule:   "*/5 * * * * *", // Every 5 seconds (cron with seconds field)
			Extensions: []string{".txt"},
		},
		Pipeline: PipelineConfig{
			StageTimeout: "2m",
		},
		Distributor: DistributorConfig{
			RecipientsDir: "./data/recipients",
			ErrorDir:      "./data/error",
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
// An empty path skips the file merge and returns defaults plus env overrides.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DISPATCH_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if dir := os.Getenv("DISPATCH_FEED_DIR"); dir != "" {
		config.Watcher.FeedDir = dir
	}
	if dir := os.Getenv("DISPATCH_RECIPIENTS_DIR"); dir != "" {
		config.Distributor.RecipientsDir = dir
	}
	if dir := os.Getenv("DISPATCH_ERROR_DIR"); dir != "" {
		config.Distributor.ErrorDir = dir
	}
	if path := os.Getenv("DISPATCH_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if key := os.Getenv("DISPATCH_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("DISPATCH_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}

	if provider := os.Getenv("DISPATCH_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}

	if level := os.Getenv("DISPATCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, feedDir string) {
	if feedDir != "" {
		config.Watcher.FeedDir = feedDir
	}
}
