package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/pipeline"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func rawFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "books_raw.csv")
	books := []models.Book{
		{
			Title:          "A Light in the Attic",
			Category:       "Default",
			PriceGBP:       51.77,
			Rating:         3,
			Availability:   "In stock (22 available)",
			StockQuantity:  22,
			UPC:            "a897fe39b1053632",
			ProductPageURL: "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
			Description:    "It's hard to imagine...more   ",
		},
		{
			Title:          "A Light in the Attic",
			Category:       "Default",
			PriceGBP:       51.77,
			Rating:         3,
			Availability:   "In stock (22 available)",
			StockQuantity:  22,
			UPC:            "a897fe39b1053632",
			ProductPageURL: "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
		},
		{
			Title:          "Soumission",
			Category:       "",
			PriceGBP:       50.10,
			Rating:         1,
			Availability:   "In stock",
			StockQuantity:  -1,
			UPC:            "6957f44c3847a760",
			ProductPageURL: "https://books.toscrape.com/catalogue/soumission_998/index.html",
		},
	}
	require.NoError(t, pipeline.WriteBooks("csv", path, books))
	return path
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"scrape", "clean", "load", "run"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestScrapeCommand_Flags(t *testing.T) {
	for _, name := range []string{"pages", "output", "format", "metrics-addr", "delay", "base-url"} {
		require.NotNil(t, scrapeCmd.Flags().Lookup(name), "scrape should have --%s", name)
	}
	require.NotNil(t, cleanCmd.Flags().Lookup("rate"))
	require.NotNil(t, loadCmd.Flags().Lookup("input"))
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := rawFixture(t, dir)
	output := filepath.Join(dir, "clean", "books_clean.csv")

	stdout, err := execute(t, "clean", "--input", input, "--output", output, "--rate", "1.27")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Duplicates removed:   1")
	assert.Contains(t, stdout, "(override)")

	records, err := pipeline.ReadRecords(output)
	require.NoError(t, err)
	require.Len(t, records, 2)

	attic := records[0]
	assert.Equal(t, "Adult", attic.Category)
	assert.Equal(t, 65.75, *attic.PriceUSD)
	assert.Equal(t, "Luxury", attic.PriceCategoryUSD)
	assert.True(t, attic.InStock)
	assert.Equal(t, 22, *attic.StockQuantity)
	assert.Equal(t, "It's hard to imagine", attic.Description)

	soumission := records[1]
	assert.Equal(t, "Uncategorized", soumission.Category)
	assert.Equal(t, pipeline.MissingDescription, soumission.Description)
	assert.Equal(t, -1, *soumission.StockQuantity)
}

func TestCleanCommandRequiresInput(t *testing.T) {
	t.Chdir(t.TempDir())
	cleanInput = ""
	cleanCmd.Flags().Lookup("input").Changed = false

	_, err := execute(t, "clean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestLoadCommandSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	dbPath := filepath.Join(dir, "db", "books.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", dbPath)

	cleanPath := filepath.Join(dir, "clean.csv")
	_, err := execute(t, "clean", "--input", rawFixture(t, dir), "--output", cleanPath, "--rate", "1.27")
	require.NoError(t, err)

	stdout, err := execute(t, "load", "--input", cleanPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Inserted 2 rows into books (sqlite)")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count, inStock int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), SUM(in_stock) FROM books`).Scan(&count, &inStock))
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, inStock)
}

func TestPrintSummary(t *testing.T) {
	start := time.Date(2025, 11, 29, 10, 0, 0, 0, time.UTC)
	result := &models.ScraperResult{
		StartTime:    start,
		EndTime:      start.Add(10 * time.Second),
		TotalCount:   20,
		RequestCount: 25,
		ErrorCount:   5,
		PageCount:    1,
		FailedURLs:   []string{"a", "b", "c", "d", "e"},
		ErrorsByType: map[string]int{"not_found": 5},
	}

	var out bytes.Buffer
	printSummary(&out, result, "data/raw/books_raw_20251129.csv")

	text := out.String()
	assert.Contains(t, text, "Total books:   20")
	assert.Contains(t, text, "Success rate:  80.00%")
	assert.Contains(t, text, "Books/sec:     2.00")
	assert.Contains(t, text, "map[not_found:5]")
	assert.NotContains(t, text, "Price range")
}

func TestBookStats(t *testing.T) {
	stats, ok := bookStats([]models.Book{
		{Category: "Poetry", PriceGBP: 10, Description: "x"},
		{Category: "Poetry", PriceGBP: 30},
		{Category: "", PriceGBP: 20},
	})
	require.True(t, ok)
	assert.Equal(t, 1, stats.categories)
	assert.Equal(t, 10.0, stats.minPrice)
	assert.Equal(t, 30.0, stats.maxPrice)
	assert.Equal(t, 20.0, stats.meanPrice)
	assert.Equal(t, 1, stats.described)

	_, ok = bookStats(nil)
	assert.False(t, ok)
}

func TestRatingLine(t *testing.T) {
	assert.Equal(t, "1:2 3:1 5:4", ratingLine(map[int]int{5: 4, 1: 2, 3: 1}))
	assert.Empty(t, strings.TrimSpace(ratingLine(nil)))
}
