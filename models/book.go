// Package models defines data structures shared by the scraper, the cleaning
// pipeline and the store.
package models

import "time"

// Book is a record as scraped from the catalogue. The listing page creates it and
// the detail page enriches it in place.
type Book struct {
	Title          string  `csv:"title" json:"title"`
	Category       string  `csv:"category" json:"category"`
	PriceGBP       float64 `csv:"price_gbp" json:"price_gbp"`
	Rating         int     `csv:"rating" json:"rating"`
	Availability   string  `csv:"availability" json:"availability"`
	StockQuantity  int     `csv:"stock_quantity" json:"stock_quantity"`
	UPC            string  `csv:"upc" json:"upc"`
	ProductPageURL string  `csv:"product_page_url" json:"product_page_url"`
	Description    string  `csv:"description" json:"description"`
}

// Record is a row of the cleaned dataset. Numeric columns are nil when the value
// was missing or invalid.
type Record struct {
	Title            string   `csv:"title" json:"title"`
	Category         string   `csv:"category" json:"category"`
	PriceGBP         *float64 `csv:"price_gbp" json:"price_gbp"`
	PriceUSD         *float64 `csv:"price_usd" json:"price_usd"`
	PriceCategoryUSD string   `csv:"price_category_usd" json:"price_category_usd"`
	Rating           *int     `csv:"rating" json:"rating"`
	Availability     string   `csv:"availability" json:"availability"`
	InStock          bool     `csv:"in_stock" json:"in_stock"`
	StockQuantity    *int     `csv:"stock_quantity" json:"stock_quantity"`
	UPC              string   `csv:"upc" json:"upc"`
	ProductPageURL   string   `csv:"product_page_url" json:"product_page_url"`
	Description      string   `csv:"description" json:"description"`
}

// RecordFromBook converts a scraped book into a dataset row.
func RecordFromBook(b Book) Record {
	price := b.PriceGBP
	rating := b.Rating
	stock := b.StockQuantity
	return Record{
		Title:          b.Title,
		Category:       b.Category,
		PriceGBP:       &price,
		Rating:         &rating,
		Availability:   b.Availability,
		StockQuantity:  &stock,
		UPC:            b.UPC,
		ProductPageURL: b.ProductPageURL,
		Description:    b.Description,
	}
}

// RecordsFromBooks converts a scraped dataset into rows.
func RecordsFromBooks(books []Book) []Record {
	out := make([]Record, 0, len(books))
	for _, b := range books {
		out = append(out, RecordFromBook(b))
	}
	return out
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	Books        []Book
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RequestCount int
	PageCount    int
}
