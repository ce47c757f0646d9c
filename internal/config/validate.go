package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}

	if cfg.Extractor.Timeout <= 0 {
		return fmt.Errorf("extractor.timeout must be > 0")
	}
	if cfg.Extractor.MinBlockLength < 1 {
		return fmt.Errorf("extractor.min_block_length must be >= 1, got %d", cfg.Extractor.MinBlockLength)
	}
	if cfg.Extractor.MinFallbackLength < 0 {
		return fmt.Errorf("extractor.min_fallback_length must be >= 0, got %d", cfg.Extractor.MinFallbackLength)
	}
	if cfg.Extractor.TitlePlaceholder == "" {
		return fmt.Errorf("extractor.title_placeholder must not be empty")
	}
	for i, c := range cfg.Extractor.Candidates {
		if c.Selector == "" {
			return fmt.Errorf("extractor.candidates[%d]: selector must not be empty", i)
		}
		if c.Type != "" && c.Type != "css" && c.Type != "xpath" {
			return fmt.Errorf("extractor.candidates[%d]: type must be 'css' or 'xpath', got %q", i, c.Type)
		}
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		if cfg.Proxy.RetryAfter < 0 {
			return fmt.Errorf("proxy.retry_after must be >= 0")
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if cfg.Limits.PerHostRPS < 0 {
		return fmt.Errorf("limits.per_host_rps must be >= 0")
	}
	if cfg.Limits.MaxConcurrent < 0 {
		return fmt.Errorf("limits.max_concurrent must be >= 0")
	}

	if cfg.Backend.URL != "" {
		if err := ValidateURL(cfg.Backend.URL); err != nil {
			return fmt.Errorf("backend.url: %w", err)
		}
		if cfg.Backend.ScrapeEnabled {
			// Backend attempt plus local fallback must finish inside the server deadline.
			if cfg.Backend.ScrapeTimeout+cfg.Extractor.Timeout >= cfg.Server.WriteTimeout {
				return fmt.Errorf("backend.scrape_timeout (%s) + extractor.timeout (%s) must be below server.write_timeout (%s)",
					cfg.Backend.ScrapeTimeout, cfg.Extractor.Timeout, cfg.Server.WriteTimeout)
			}
		}
	}

	validStorageTypes := map[string]bool{
		"none": true, "memory": true, "jsonl": true, "mongodb": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: none, memory, jsonl, mongodb)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "mongodb" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for mongodb storage")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks that a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
