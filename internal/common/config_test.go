package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "./data/feed", config.Watcher.FeedDir)
	assert.Equal(t, []string{".txt"}, config.Watcher.Extensions)
	assert.Equal(t, "2m", config.Pipeline.StageTimeout)
	assert.Equal(t, "./data/recipients", config.Distributor.RecipientsDir)
	assert.Equal(t, "./data/error", config.Distributor.ErrorDir)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
	assert.Equal(t, "gemini-2.0-flash", config.Gemini.Model)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadFromFileMergesOverDefaults(t *testing.T) {
	content := `
environment = "production"

[watcher]
feed_dir = "/srv/feed"
extensions = [".txt", ".md"]

[pipeline]
stage_timeout = "30s"

[llm]
default_provider = "claude"

[claude]
api_key = "from-file"
`
	path := filepath.Join(t.TempDir(), "dispatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "/srv/feed", config.Watcher.FeedDir)
	assert.Equal(t, []string{".txt", ".md"}, config.Watcher.Extensions)
	assert.Equal(t, "30s", config.Pipeline.StageTimeout)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.Equal(t, "from-file", config.Claude.APIKey)

	// Untouched sections keep their defaults
	assert.Equal(t, "./data/recipients", config.Distributor.RecipientsDir)
	assert.Equal(t, "gemini-2.0-flash", config.Gemini.Model)
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadFromFileEmptyPathReturnsDefaults(t *testing.T) {
	config, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "./data/feed", config.Watcher.FeedDir)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("DISPATCH_FEED_DIR", "/env/feed")
	t.Setenv("DISPATCH_LLM_PROVIDER", "CLAUDE")
	t.Setenv("DISPATCH_LOG_LEVEL", "debug")
	t.Setenv("ANTHROPIC_API_KEY", "env-fallback-key")

	config, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, "/env/feed", config.Watcher.FeedDir)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "env-fallback-key", config.Claude.APIKey)
}

func TestDispatchKeyBeatsProviderFallback(t *testing.T) {
	t.Setenv("DISPATCH_CLAUDE_API_KEY", "dispatch-key")
	t.Setenv("ANTHROPIC_API_KEY", "fallback-key")

	config, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "dispatch-key", config.Claude.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, "/flag/feed")
	assert.Equal(t, "/flag/feed", config.Watcher.FeedDir)

	ApplyFlagOverrides(config, "")
	assert.Equal(t, "/flag/feed", config.Watcher.FeedDir, "empty flag must not reset the value")
}
