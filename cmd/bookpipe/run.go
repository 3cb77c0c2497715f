package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/pipeline"
)

var runSkipLoad bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape, clean and load in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyScrapeFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return eris.Wrap(err, "invalid configuration")
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		now := time.Now()

		result, err := scrapeCatalogue(ctx)
		if err != nil {
			return err
		}
		rawPath := pipeline.RawFilename(cfg.Output.RawDir, now)
		if err := pipeline.WriteBooks("csv", rawPath, result.Books); err != nil {
			return eris.Wrap(err, "write raw dataset")
		}
		printSummary(out, result, rawPath)

		cleanPath := pipeline.CleanFilename(cfg.Output.CleanDir, now)
		cleaned, report, err := cleanAndWrite(ctx, models.RecordsFromBooks(result.Books), cleanPath)
		if err != nil {
			return err
		}
		printReport(out, report, cleanPath)

		if runSkipLoad {
			return nil
		}
		n, err := loadRecords(ctx, cleaned)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Inserted %d rows into books (%s)\n", n, cfg.Database.Driver)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&scrapePages, "pages", 0, "Maximum catalogue pages to scrape (default from config)")
	f.StringVar(&scrapeMetricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	f.DurationVar(&scrapeDelay, "delay", 0, "Pause after every successful request")
	f.StringVar(&scrapeBaseURL, "base-url", "", "Catalogue base URL")
	f.BoolVar(&runSkipLoad, "skip-load", false, "Stop after writing the cleaned dataset")
	rootCmd.AddCommand(runCmd)
}
