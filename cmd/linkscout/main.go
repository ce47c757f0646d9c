package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/linkscout/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "linkscout",
		Short: "LinkScout: article extraction front-end for credibility analysis",
		Long: `LinkScout fetches news and blog articles, extracts their content as
ordered heading, list and paragraph blocks, and forwards them to the
LinkScout analysis backend.

Features:
  • Same-process extraction with boilerplate removal and sentence fallback
  • Backend-first scraping with automatic local fallback
  • HTTP API with CORS for the web interface and browser extension
  • Scrape history in memory, JSONL or MongoDB
  • Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig(overrides func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if overrides != nil {
		overrides(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("LinkScout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Server:\n")
			fmt.Printf("  Port:              %d\n", cfg.Server.Port)
			fmt.Printf("  Write Timeout:     %s\n", cfg.Server.WriteTimeout)
			fmt.Printf("  Allow Origin:      %s\n", cfg.Server.AllowOrigin)
			fmt.Printf("\nExtractor:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Extractor.Timeout)
			fmt.Printf("  Min Block Length:  %d\n", cfg.Extractor.MinBlockLength)
			fmt.Printf("  Min Fallback Text: %d\n", cfg.Extractor.MinFallbackLength)
			fmt.Printf("  Candidates:        %d configured\n", len(cfg.Extractor.Candidates))
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Max Redirects:     %d\n", cfg.Fetcher.MaxRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nProxy:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Proxy.Enabled)
			fmt.Printf("  Rotation:          %s\n", cfg.Proxy.Rotation)
			fmt.Printf("  Count:             %d\n", len(cfg.Proxy.URLs))
			fmt.Printf("  Retry After:       %s\n", cfg.Proxy.RetryAfter)
			fmt.Printf("\nBackend:\n")
			fmt.Printf("  URL:               %s\n", cfg.Backend.URL)
			fmt.Printf("  Scrape Enabled:    %v\n", cfg.Backend.ScrapeEnabled)
			fmt.Printf("  Scrape Timeout:    %s\n", cfg.Backend.ScrapeTimeout)
			fmt.Printf("  Analyze Timeout:   %s\n", cfg.Backend.AnalyzeTimeout)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			if cfg.Storage.Type == "jsonl" {
				fmt.Printf("  Path:              %s\n", cfg.Storage.Path)
			}
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Path:              %s\n", cfg.Metrics.Path)

			if err := config.Validate(cfg); err != nil {
				fmt.Printf("\n⚠️  Configuration is invalid: %v\n", err)
			}
			return nil
		},
	}
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
