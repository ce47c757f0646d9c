package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 15*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, 20, cfg.Extractor.MinBlockLength)
	assert.Equal(t, 50, cfg.Extractor.MinFallbackLength)
	assert.Equal(t, "Untitled", cfg.Extractor.TitlePlaceholder)
	require.NotEmpty(t, cfg.Extractor.Candidates)
	assert.Equal(t, "article", cfg.Extractor.Candidates[0].Selector)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkscout.yaml")
	yaml := `
server:
  port: 8088
extractor:
  timeout: 5s
  candidates:
    - selector: "//div[@id='story']"
      type: xpath
    - selector: article
backend:
  url: https://backend.example.com
  scrape_timeout: 20s
storage:
  type: jsonl
  path: /tmp/history.jsonl
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Extractor.Timeout)
	require.Len(t, cfg.Extractor.Candidates, 2)
	assert.Equal(t, "xpath", cfg.Extractor.Candidates[0].Type)
	assert.Equal(t, "https://backend.example.com", cfg.Backend.URL)
	assert.Equal(t, 20*time.Second, cfg.Backend.ScrapeTimeout)
	assert.Equal(t, "jsonl", cfg.Storage.Type)
	// Untouched keys keep their defaults.
	assert.Equal(t, 20, cfg.Extractor.MinBlockLength)
	require.NoError(t, Validate(cfg))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LINKSCOUT_BACKEND_URL", "https://env.example.com")
	t.Setenv("LINKSCOUT_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Backend.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDiscoveredMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "linkscout.yaml"), []byte("server: [port: 1\n"), 0o644))
	t.Chdir(dir)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadWithoutDiscoveredFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero extractor timeout", func(c *Config) { c.Extractor.Timeout = 0 }},
		{"bad candidate type", func(c *Config) { c.Extractor.Candidates = []Candidate{{Selector: "x", Type: "regex"}} }},
		{"empty candidate", func(c *Config) { c.Extractor.Candidates = []Candidate{{Type: "css"}} }},
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"bad backend url", func(c *Config) { c.Backend.URL = "ftp://backend" }},
		{"deadline overflow", func(c *Config) { c.Backend.ScrapeTimeout = 55 * time.Second }},
		{"bad storage", func(c *Config) { c.Storage.Type = "csv" }},
		{"mongo without uri", func(c *Config) { c.Storage.Type = "mongodb" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad rotation", func(c *Config) { c.Proxy.Enabled = true; c.Proxy.Rotation = "sticky" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateAllowsDisabledBackendScrape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.ScrapeEnabled = false
	cfg.Backend.ScrapeTimeout = 5 * time.Minute
	assert.NoError(t, Validate(cfg))
}
