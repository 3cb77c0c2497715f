package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/pipeline"
	"github.com/aluiziolira/books-etl/scraper"
)

var (
	scrapePages       int
	scrapeOutput      string
	scrapeFormat      string
	scrapeMetricsAddr string
	scrapeDelay       time.Duration
	scrapeBaseURL     string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Crawl the catalogue and write the raw dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyScrapeFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return eris.Wrap(err, "invalid configuration")
		}

		result, err := scrapeCatalogue(cmd.Context())
		if err != nil {
			return err
		}

		output := rawOutputPath(cmd)
		if err := pipeline.WriteBooks(cfg.Output.Format, output, result.Books); err != nil {
			return eris.Wrap(err, "write raw dataset")
		}
		printSummary(cmd.OutOrStdout(), result, output)
		return nil
	},
}

func init() {
	f := scrapeCmd.Flags()
	f.IntVar(&scrapePages, "pages", 0, "Maximum catalogue pages to scrape (default from config)")
	f.StringVar(&scrapeOutput, "output", "", "Raw dataset path (default data/raw/books_raw_YYYYMMDD.csv)")
	f.StringVar(&scrapeFormat, "format", "", "Output format: csv, json, or dual")
	f.StringVar(&scrapeMetricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	f.DurationVar(&scrapeDelay, "delay", 0, "Pause after every successful request")
	f.StringVar(&scrapeBaseURL, "base-url", "", "Catalogue base URL")
	rootCmd.AddCommand(scrapeCmd)
}

// applyScrapeFlags layers explicitly set flags over the loaded configuration.
func applyScrapeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("pages") {
		cfg.Scrape.MaxPages = scrapePages
	}
	if flags.Changed("format") {
		cfg.Output.Format = strings.ToLower(scrapeFormat)
	}
	if flags.Changed("metrics-addr") {
		cfg.Scrape.MetricsAddr = scrapeMetricsAddr
	}
	if flags.Changed("delay") {
		cfg.Scrape.Delay = scrapeDelay
	}
	if flags.Changed("base-url") {
		cfg.Scrape.BaseURL = scrapeBaseURL
	}
}

func rawOutputPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("output") && scrapeOutput != "" {
		return scrapeOutput
	}
	path := pipeline.RawFilename(cfg.Output.RawDir, time.Now())
	if cfg.Output.Format == "json" {
		path = strings.TrimSuffix(path, ".csv") + ".jsonl"
	}
	return path
}

// scrapeCatalogue runs the crawl, serving metrics while it runs when configured.
func scrapeCatalogue(ctx context.Context) (*models.ScraperResult, error) {
	zap.L().Info("starting scrape",
		zap.String("base_url", cfg.Scrape.BaseURL),
		zap.Int("pages", cfg.Scrape.MaxPages),
		zap.Duration("delay", cfg.Scrape.Delay),
	)

	s, err := scraper.NewScraper(cfg.Scrape)
	if err != nil {
		return nil, eris.Wrap(err, "initialise scraper")
	}

	if cfg.Scrape.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.Scrape.MetricsAddr, s.Metrics.Registry)
		defer shutdown()
	}

	result, err := s.Run(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scrape")
	}
	return result, nil
}

func serveMetrics(addr string, registry *prometheus.Registry) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("metrics server failed", zap.Error(err))
		}
	}()
	zap.L().Info("metrics server enabled", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			zap.L().Error("metrics server shutdown failed", zap.Error(err))
		}
	}
}
