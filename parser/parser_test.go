package parser

import (
	"testing"

	"github.com/aluiziolira/books-etl/models"
)

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr bool
	}{
		{
			name: "valid book",
			book: &models.Book{
				Title:          "Test Book",
				PriceGBP:       10,
				Availability:   "In stock",
				ProductPageURL: "http://example.com/catalogue/test_1/index.html",
			},
			wantErr: false,
		},
		{
			name:    "nil book",
			book:    nil,
			wantErr: true,
		},
		{
			name: "missing title",
			book: &models.Book{
				Title:          "  ",
				ProductPageURL: "http://example.com/catalogue/test_1/index.html",
			},
			wantErr: true,
		},
		{
			name: "missing detail url",
			book: &models.Book{
				Title: "Test Book",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{name: "with currency symbol", input: "£51.77", expected: 51.77},
		{name: "mis-decoded pound", input: "Â£53.74", expected: 53.74},
		{name: "with whitespace", input: "  £10.50  ", expected: 10.50},
		{name: "thousands separator", input: "£1,234.50", expected: 1234.50},
		{name: "already clean", input: "25.99", expected: 25.99},
		{name: "empty string", input: "", expected: 0},
		{name: "garbage", input: "£abc", expected: 0},
		{name: "two numbers", input: "£10.00 £12.00", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParsePrice(tt.input)
			if result != tt.expected {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseStock(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "In stock (22 available)", expected: 22},
		{input: "In stock (1 available)", expected: 1},
		{input: "In stock", expected: -1},
		{input: "Out of stock", expected: 0},
		{input: "", expected: 0},
		{input: "in stock", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseStock(tt.input); got != tt.expected {
				t.Errorf("ParseStock(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRatingToNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "One", expected: 1},
		{input: "Two", expected: 2},
		{input: "Three", expected: 3},
		{input: "Four", expected: 4},
		{input: "Five", expected: 5},
		{input: "Zero", expected: 0},
		{input: "Six", expected: 0},
		{input: "three", expected: 0},
		{input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RatingToNumeric(tt.input)
			if result != tt.expected {
				t.Errorf("RatingToNumeric(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRatingFromClass(t *testing.T) {
	if got := RatingFromClass("star-rating Four"); got != 4 {
		t.Errorf("RatingFromClass = %d, want 4", got)
	}
	if got := RatingFromClass("star-rating"); got != 0 {
		t.Errorf("RatingFromClass without word = %d, want 0", got)
	}
}

func TestResolveDetailURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		href     string
		expected string
	}{
		{
			name:     "category relative link",
			base:     "https://site",
			href:     "../../../cat/x/index.html",
			expected: "https://site/catalogue/cat/x/index.html",
		},
		{
			name:     "catalogue relative link",
			base:     "https://books.toscrape.com",
			href:     "a-light-in-the-attic_1000/index.html",
			expected: "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
		},
		{
			name:     "trailing slash on base",
			base:     "https://site/",
			href:     "x/index.html",
			expected: "https://site/catalogue/x/index.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDetailURL(tt.base, tt.href); got != tt.expected {
				t.Errorf("ResolveDetailURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.expected)
			}
		})
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with whitespace",
			input:    "\n    In stock (22 available)\n  ",
			expected: "In stock (22 available)",
		},
		{
			name:     "no whitespace",
			input:    "In stock",
			expected: "In stock",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeAvailability(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"True", "true", "1", "YES", "y"} {
		if !ParseBool(v) {
			t.Errorf("ParseBool(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"False", "0", "", "no", "maybe"} {
		if ParseBool(v) {
			t.Errorf("ParseBool(%q) = true, want false", v)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate = %q, want %q", got, "hé")
	}
	if got := Truncate("short", 500); got != "short" {
		t.Errorf("Truncate = %q, want %q", got, "short")
	}
}
