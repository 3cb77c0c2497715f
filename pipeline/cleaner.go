// Package pipeline turns a scraped dataset into its cleaned form and reads and
// writes both on disk.
package pipeline

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/models"
)

// MissingDescription replaces empty descriptions.
const MissingDescription = "Description not available"

var (
	moreSuffix      = regexp.MustCompile(`(?i)\s*\.\.\.more\s*$`)
	longEllipsis    = regexp.MustCompile(`\.{4,}`)
	categoryRenames = map[string]string{"Default": "Adult"}
)

// RateSource supplies the GBP to USD rate and a label for where it came from.
type RateSource interface {
	Resolve(ctx context.Context) (float64, string)
}

// Cleaner runs the cleaning stages in a fixed order.
type Cleaner struct {
	rates RateSource
}

// NewCleaner builds a cleaner that converts prices with rates.
func NewCleaner(rates RateSource) *Cleaner {
	return &Cleaner{rates: rates}
}

// Clean returns the cleaned dataset and a report of what every stage changed.
// The input slice is not modified.
func (c *Cleaner) Clean(ctx context.Context, records []models.Record) ([]models.Record, models.CleaningReport) {
	report := models.CleaningReport{
		InitialRows: len(records),
		Missing:     MissingValues(records),
	}
	zap.L().Info("cleaning dataset", zap.Int("rows", len(records)), zap.Any("missing", report.Missing.EmptyByCol))

	out, removed := RemoveDuplicates(records)
	report.DuplicatesRemoved = removed
	zap.L().Info("removed duplicates", zap.Int("removed", removed))

	out, filled := FillMissingDescriptions(out)
	report.MissingDescriptionsFilled = filled
	zap.L().Info("filled missing descriptions", zap.Int("filled", filled))

	out, cleaned := CleanDescriptions(out)
	report.DescriptionsCleaned = cleaned
	zap.L().Info("cleaned descriptions", zap.Int("cleaned", cleaned))

	rate, source := c.rates.Resolve(ctx)
	report.ExchangeRate = rate
	report.ExchangeRateSource = source
	out = ConvertToUSD(out, rate)
	zap.L().Info("converted prices to USD", zap.Float64("rate", rate), zap.String("source", source))

	out, changed, blank := StandardizeCategories(out)
	report.CategoriesChanged = changed
	report.CategoriesFilled = blank
	zap.L().Info("standardized categories", zap.Int("renamed", changed), zap.Int("filled", blank))

	out, invalid := ValidateTypes(out)
	report.InvalidValues = invalid
	if len(invalid) > 0 {
		zap.L().Warn("invalid values cleared", zap.Any("columns", invalid))
	}

	out = AddDerivedColumns(out)

	report.FinalRows = len(out)
	report.Summary = Summarize(out)
	zap.L().Info("cleaning complete",
		zap.Int("initial_rows", report.InitialRows),
		zap.Int("final_rows", report.FinalRows),
	)
	return out, report
}

type dedupKey struct {
	title string
	upc   string
}

// RemoveDuplicates keeps the first row for every (title, upc) pair.
func RemoveDuplicates(records []models.Record) ([]models.Record, int) {
	seen := make(map[dedupKey]struct{}, len(records))
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		key := dedupKey{title: r.Title, upc: r.UPC}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}

// FillMissingDescriptions replaces blank descriptions with MissingDescription.
func FillMissingDescriptions(records []models.Record) ([]models.Record, int) {
	out := make([]models.Record, len(records))
	filled := 0
	for i, r := range records {
		if strings.TrimSpace(r.Description) == "" {
			r.Description = MissingDescription
			filled++
		}
		out[i] = r
	}
	return out, filled
}

// CleanDescription strips a trailing "...more", collapses whitespace and shortens
// runs of four or more periods to an ellipsis.
func CleanDescription(text string) string {
	if text == MissingDescription {
		return text
	}
	text = moreSuffix.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	text = longEllipsis.ReplaceAllString(text, "...")
	return strings.TrimSpace(text)
}

// CleanDescriptions applies CleanDescription to every row and counts the rows it changed.
func CleanDescriptions(records []models.Record) ([]models.Record, int) {
	out := make([]models.Record, len(records))
	changed := 0
	for i, r := range records {
		cleaned := CleanDescription(r.Description)
		if cleaned != r.Description {
			changed++
		}
		r.Description = cleaned
		out[i] = r
	}
	return out, changed
}

// ConvertToUSD sets price_usd to price_gbp times rate, rounded to cents.
func ConvertToUSD(records []models.Record, rate float64) []models.Record {
	out := make([]models.Record, len(records))
	for i, r := range records {
		r.PriceUSD = nil
		if r.PriceGBP != nil {
			usd := round2(*r.PriceGBP * rate)
			r.PriceUSD = &usd
		}
		out[i] = r
	}
	return out
}

// StandardizeCategories renames "Default" to "Adult" and fills blank categories
// with "Uncategorized". It returns the rename and fill counts.
func StandardizeCategories(records []models.Record) ([]models.Record, int, int) {
	out := make([]models.Record, len(records))
	renamed, filled := 0, 0
	for i, r := range records {
		if to, ok := categoryRenames[r.Category]; ok {
			r.Category = to
			renamed++
		} else if strings.TrimSpace(r.Category) == "" {
			r.Category = "Uncategorized"
			filled++
		}
		out[i] = r
	}
	return out, renamed, filled
}

// ValidateTypes clears numeric values outside their domain and drops invalid
// UTF-8 from text columns. Counts are keyed by column name.
func ValidateTypes(records []models.Record) ([]models.Record, map[string]int) {
	invalid := make(map[string]int)
	out := make([]models.Record, len(records))
	for i, r := range records {
		if r.PriceGBP != nil && !validPrice(*r.PriceGBP) {
			r.PriceGBP = nil
			invalid["price_gbp"]++
		}
		if r.PriceUSD != nil && !validPrice(*r.PriceUSD) {
			r.PriceUSD = nil
			invalid["price_usd"]++
		}
		if r.Rating != nil && (*r.Rating < 0 || *r.Rating > 5) {
			r.Rating = nil
			invalid["rating"]++
		}
		if r.StockQuantity != nil && *r.StockQuantity < -1 {
			r.StockQuantity = nil
			invalid["stock_quantity"]++
		}

		for col, field := range map[string]*string{
			"title":            &r.Title,
			"category":         &r.Category,
			"availability":     &r.Availability,
			"upc":              &r.UPC,
			"product_page_url": &r.ProductPageURL,
			"description":      &r.Description,
		} {
			if !utf8.ValidString(*field) {
				*field = strings.ToValidUTF8(*field, "")
				invalid[col]++
			}
		}
		out[i] = r
	}
	return out, invalid
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AddDerivedColumns sets in_stock and the USD price tier.
func AddDerivedColumns(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	for i, r := range records {
		r.InStock = strings.Contains(strings.ToLower(r.Availability), "in stock")
		r.PriceCategoryUSD = PriceCategory(r.PriceUSD)
		out[i] = r
	}
	return out
}

// PriceCategory buckets a USD price into (0,25] Budget, (25,45] Mid-range,
// (45,65] Premium and (65,150] Luxury. Anything else has no tier.
func PriceCategory(usd *float64) string {
	if usd == nil {
		return ""
	}
	switch v := *usd; {
	case v <= 0:
		return ""
	case v <= 25:
		return "Budget"
	case v <= 45:
		return "Mid-range"
	case v <= 65:
		return "Premium"
	case v <= 150:
		return "Luxury"
	default:
		return ""
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
