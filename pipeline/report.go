package pipeline

import (
	"sort"
	"strings"

	"github.com/aluiziolira/books-etl/models"
)

// MissingValues counts empty text and absent numeric values per column.
func MissingValues(records []models.Record) models.MissingReport {
	report := models.MissingReport{Rows: len(records), EmptyByCol: make(map[string]int)}
	for _, r := range records {
		for col, value := range map[string]string{
			"title":       r.Title,
			"category":    r.Category,
			"upc":         r.UPC,
			"description": r.Description,
		} {
			if strings.TrimSpace(value) == "" {
				report.EmptyByCol[col]++
			}
		}
		if r.PriceGBP == nil {
			report.EmptyByCol["price_gbp"]++
		}
		if r.Rating == nil {
			report.EmptyByCol["rating"]++
		}
		if r.StockQuantity == nil {
			report.EmptyByCol["stock_quantity"]++
		}
	}
	return report
}

// Summarize computes descriptive statistics over a cleaned dataset. Rows with a
// missing value are left out of that column's statistics.
func Summarize(records []models.Record) models.Summary {
	summary := models.Summary{
		Books:        len(records),
		RatingCounts: make(map[int]int),
	}
	if len(records) == 0 {
		return summary
	}

	var gbp, usd []float64
	categories := make(map[string]struct{})
	for _, r := range records {
		if r.PriceGBP != nil {
			gbp = append(gbp, *r.PriceGBP)
		}
		if r.PriceUSD != nil {
			usd = append(usd, *r.PriceUSD)
		}
		if r.Rating != nil {
			summary.RatingCounts[*r.Rating]++
		}
		categories[r.Category] = struct{}{}
		if r.InStock {
			summary.InStock++
		}
	}

	summary.MinPriceGBP, summary.MaxPriceGBP, summary.MeanPriceGBP, summary.MedianPriceGBP = describe(gbp)
	summary.MinPriceUSD, summary.MaxPriceUSD, summary.MeanPriceUSD, summary.MedianPriceUSD = describe(usd)
	summary.UniqueCategories = len(categories)
	summary.InStockShare = round2(float64(summary.InStock) / float64(len(records)))
	return summary
}

func describe(values []float64) (minimum, maximum, mean, median float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}

	n := len(sorted)
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[0], sorted[n-1], round2(total / float64(n)), round2(median)
}
