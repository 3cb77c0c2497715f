// Package parser holds the text parsing rules applied to scraped catalogue values.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/aluiziolira/books-etl/models"
)

// relativePrefix is how detail links on category pages climb back to the site root.
const relativePrefix = "../../../"

var (
	stockPattern  = regexp.MustCompile(`\((\d+) available\)`)
	priceReplacer = strings.NewReplacer("£", "", "Â", "", ",", "")
)

// ValidateBook ensures the listing extractor captured the fields a card cannot do without.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return eris.New("parser: book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return eris.New("parser: book missing title")
	}
	if strings.TrimSpace(b.ProductPageURL) == "" {
		return eris.Errorf("parser: book missing detail url for %s", b.Title)
	}
	return nil
}

// ParsePrice strips the currency symbol and thousands separators and returns the
// amount. Unparsable input yields 0.
func ParsePrice(price string) float64 {
	cleaned := strings.TrimSpace(priceReplacer.Replace(price))
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// NormalizeAvailability trims spacing from the availability text.
func NormalizeAvailability(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ParseStock reads the stock quantity out of an availability text.
// -1 means in stock with no count given.
func ParseStock(availability string) int {
	if m := stockPattern.FindStringSubmatch(availability); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n
		}
	}
	if strings.Contains(availability, "In stock") {
		return -1
	}
	return 0
}

// RatingToNumeric converts the textual rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

// RatingFromClass picks the rating word out of a "star-rating Three" class list.
func RatingFromClass(class string) int {
	for _, word := range strings.Fields(class) {
		if n := RatingToNumeric(word); n > 0 {
			return n
		}
	}
	return 0
}

// ResolveDetailURL turns a product link from a listing page into an absolute URL.
func ResolveDetailURL(base, href string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasPrefix(href, relativePrefix) {
		return base + "/catalogue/" + strings.TrimPrefix(href, relativePrefix)
	}
	return base + "/catalogue/" + strings.TrimLeft(href, "/")
}

// ParseBool accepts the truthy spellings found in exported CSV files.
func ParseBool(value string) bool {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TRUE", "1", "YES", "Y":
		return true
	default:
		return false
	}
}

// Truncate cuts text to at most max runes.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}
