package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/pipeline"
	"github.com/aluiziolira/books-etl/store"
)

var loadInput string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a cleaned dataset into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return eris.Wrap(err, "invalid configuration")
		}

		records, err := pipeline.ReadRecords(loadInput)
		if err != nil {
			return err
		}
		zap.L().Info("loaded clean dataset", zap.String("path", loadInput), zap.Int("rows", len(records)))

		n, err := loadRecords(cmd.Context(), records)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d rows into books (%s)\n", n, cfg.Database.Driver)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadInput, "input", "", "Cleaned dataset CSV to load")
	_ = loadCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(loadCmd)
}

// loadRecords opens the configured store, ensures the table exists and inserts
// every record in one transaction.
func loadRecords(ctx context.Context, records []models.Record) (int, error) {
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		return 0, eris.Wrap(err, "open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			zap.L().Error("close store", zap.Error(err))
		}
		zap.L().Info("database connection closed")
	}()

	if err := st.Migrate(ctx); err != nil {
		return 0, eris.Wrap(err, "migrate store")
	}
	n, err := st.InsertBooks(ctx, records)
	if err != nil {
		return 0, eris.Wrap(err, "insert books")
	}
	return n, nil
}
