package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aluiziolira/books-etl/models"
)

const separator = "--------------------------------------------------"

func printSummary(w io.Writer, result *models.ScraperResult, outputFile string) {
	duration := result.EndTime.Sub(result.StartTime)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(result.TotalCount) / duration.Seconds()
	}
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Scrape complete")
	fmt.Fprintf(w, "  Total books:   %d\n", result.TotalCount)
	if stats, ok := bookStats(result.Books); ok {
		fmt.Fprintf(w, "  Categories:    %d\n", stats.categories)
		fmt.Fprintf(w, "  Price range:   £%.2f - £%.2f (mean £%.2f)\n", stats.minPrice, stats.maxPrice, stats.meanPrice)
		fmt.Fprintf(w, "  Described:     %d\n", stats.described)
	}
	fmt.Fprintf(w, "  Pages:         %d\n", result.PageCount)
	fmt.Fprintf(w, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(w, "  Success rate:  %.2f%%\n", successRate)
	fmt.Fprintf(w, "  Errors:        %d\n", result.ErrorCount)
	fmt.Fprintf(w, "  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Books/sec:     %.2f\n", itemsPerSec)
	fmt.Fprintf(w, "  Output file:   %s\n", outputFile)
	fmt.Fprintln(w, separator)
}

func printReport(w io.Writer, report models.CleaningReport, outputFile string) {
	s := report.Summary

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Cleaning report")
	fmt.Fprintf(w, "  Initial rows:         %d\n", report.InitialRows)
	fmt.Fprintf(w, "  Duplicates removed:   %d\n", report.DuplicatesRemoved)
	fmt.Fprintf(w, "  Final rows:           %d\n", report.FinalRows)
	fmt.Fprintf(w, "  Descriptions filled:  %d\n", report.MissingDescriptionsFilled)
	fmt.Fprintf(w, "  Descriptions cleaned: %d\n", report.DescriptionsCleaned)
	fmt.Fprintf(w, "  Exchange rate:        1 GBP = %.4f USD (%s)\n", report.ExchangeRate, report.ExchangeRateSource)
	fmt.Fprintf(w, "  Default -> Adult:     %d\n", report.CategoriesChanged)
	fmt.Fprintf(w, "  Uncategorized:        %d\n", report.CategoriesFilled)
	if len(report.InvalidValues) > 0 {
		fmt.Fprintf(w, "  Invalid values:       %v\n", report.InvalidValues)
	}
	if s.Books > 0 {
		fmt.Fprintf(w, "  Price GBP:            £%.2f - £%.2f (mean £%.2f, median £%.2f)\n",
			s.MinPriceGBP, s.MaxPriceGBP, s.MeanPriceGBP, s.MedianPriceGBP)
		fmt.Fprintf(w, "  Price USD:            $%.2f - $%.2f (mean $%.2f, median $%.2f)\n",
			s.MinPriceUSD, s.MaxPriceUSD, s.MeanPriceUSD, s.MedianPriceUSD)
		fmt.Fprintf(w, "  Ratings:              %s\n", ratingLine(s.RatingCounts))
		fmt.Fprintf(w, "  Categories:           %d unique\n", s.UniqueCategories)
		fmt.Fprintf(w, "  In stock:             %d (%.1f%%)\n", s.InStock, s.InStockShare*100)
	}
	fmt.Fprintf(w, "  Output file:          %s\n", outputFile)
	fmt.Fprintln(w, separator)
}

func ratingLine(counts map[int]int) string {
	ratings := make([]int, 0, len(counts))
	for r := range counts {
		ratings = append(ratings, r)
	}
	sort.Ints(ratings)

	line := ""
	for i, r := range ratings {
		if i > 0 {
			line += " "
		}
		line += fmt.Sprintf("%d:%d", r, counts[r])
	}
	return line
}

type scrapeStats struct {
	categories int
	minPrice   float64
	maxPrice   float64
	meanPrice  float64
	described  int
}

func bookStats(books []models.Book) (scrapeStats, bool) {
	if len(books) == 0 {
		return scrapeStats{}, false
	}
	categories := make(map[string]struct{})
	stats := scrapeStats{minPrice: books[0].PriceGBP, maxPrice: books[0].PriceGBP}
	var total float64
	for _, b := range books {
		if b.Category != "" {
			categories[b.Category] = struct{}{}
		}
		if b.Description != "" {
			stats.described++
		}
		stats.minPrice = min(stats.minPrice, b.PriceGBP)
		stats.maxPrice = max(stats.maxPrice, b.PriceGBP)
		total += b.PriceGBP
	}
	stats.categories = len(categories)
	stats.meanPrice = total / float64(len(books))
	return stats, true
}
