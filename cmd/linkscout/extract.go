package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/linkscout/internal/backend"
	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

var (
	localOnly bool
	asText    bool
)

// errFailed makes the process exit non-zero after the result was printed.
var errFailed = errors.New("extraction failed")

// extractCmd creates the "extract" subcommand.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [url]",
		Short: "Extract content blocks from a URL",
		Long:  "Fetch the URL, extract its content blocks and print the result as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	cmd.Flags().BoolVar(&localOnly, "local", false, "skip the backend and extract in-process")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, ctx, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	result := scrapeOne(ctx, a, args[0])
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Success {
		cmd.SilenceErrors = true
		return errFailed
	}
	return nil
}

// analyzeCmd creates the "analyze" subcommand.
func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [url|text]",
		Short: "Extract a URL (or take raw text) and print the backend verdict",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	cmd.Flags().BoolVar(&asText, "text", false, "treat the argument as article text instead of a URL")
	cmd.Flags().BoolVar(&localOnly, "local", false, "extract in-process before analysis")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, ctx, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	req := &backend.AnalyzeRequest{
		Title:      "Direct Text Analysis",
		Paragraphs: []types.ContentBlock{{Index: 0, Text: args[0], Type: types.BlockParagraph}},
	}
	if !asText {
		result := scrapeOne(ctx, a, args[0])
		if !result.Success {
			_ = printJSON(result)
			cmd.SilenceErrors = true
			return errFailed
		}
		req = &backend.AnalyzeRequest{URL: result.URL, Title: result.Title, Paragraphs: result.Blocks}
	}

	verdict, err := a.backend.Analyze(ctx, req)
	a.metrics.RecordAnalyze(err != nil)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, verdict, "", "  "); err != nil {
		return fmt.Errorf("format verdict: %w", err)
	}
	fmt.Println(out.String())
	return nil
}

// healthCmd creates the "health" subcommand.
func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the analysis backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			client := backend.NewClient(cfg.Backend, logger)
			data, err := client.Health(cmd.Context())
			if err != nil {
				fmt.Printf("❌ Backend at %s is offline: %v\n", client.BaseURL(), err)
				cmd.SilenceErrors = true
				return err
			}
			fmt.Printf("✅ Backend at %s is reachable\n", client.BaseURL())
			return printJSON(data)
		},
	}
}

func setupApp() (*app, context.Context, func(), error) {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if localOnly {
			cfg.Backend.ScrapeEnabled = false
		}
	})
	if err != nil {
		return nil, nil, nil, err
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return a, ctx, func() {
		a.Close()
		stop()
	}, nil
}

func scrapeOne(ctx context.Context, a *app, rawURL string) *types.ExtractionResult {
	return a.scraper.Scrape(ctx, rawURL).Result
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
