package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/books-etl/exchange"
	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/pipeline"
)

var (
	cleanInput  string
	cleanOutput string
	cleanRate   float64
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean a raw dataset into the analysis-ready dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("rate") {
			cfg.Clean.ExchangeRate = cleanRate
		}
		if err := cfg.Validate(); err != nil {
			return eris.Wrap(err, "invalid configuration")
		}

		raw, err := pipeline.ReadRecords(cleanInput)
		if err != nil {
			return err
		}

		output := cleanOutput
		if output == "" {
			output = pipeline.CleanFilename(cfg.Output.CleanDir, time.Now())
		}
		_, report, err := cleanAndWrite(cmd.Context(), raw, output)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report, output)
		return nil
	},
}

func init() {
	f := cleanCmd.Flags()
	f.StringVar(&cleanInput, "input", "", "Raw dataset CSV to clean")
	f.StringVar(&cleanOutput, "output", "", "Cleaned dataset path (default data/clean/books_clean_YYYYMMDD.csv)")
	f.Float64Var(&cleanRate, "rate", 0, "GBP to USD rate; skips the live lookup when set")
	_ = cleanCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(cleanCmd)
}

// cleanAndWrite cleans raw and writes the result as CSV to output.
func cleanAndWrite(ctx context.Context, raw []models.Record, output string) ([]models.Record, models.CleaningReport, error) {
	cleaner := pipeline.NewCleaner(exchange.NewResolver(cfg.Clean))
	cleaned, report := cleaner.Clean(ctx, raw)

	if err := pipeline.WriteRecords("csv", output, cleaned); err != nil {
		return nil, report, eris.Wrap(err, "write clean dataset")
	}
	return cleaned, report, nil
}
