// Package store loads cleaned books into a relational database.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/aluiziolira/books-etl/config"
	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/parser"
)

// Store defines the persistence interface for the loader.
type Store interface {
	Migrate(ctx context.Context) error
	// InsertBooks writes all records in one transaction and returns how many were
	// inserted. On any error nothing is committed.
	InsertBooks(ctx context.Context, records []models.Record) (int, error)
	Close() error
}

// Column text limits, in characters.
const (
	maxTitle         = 500
	maxCategory      = 100
	maxAvailability  = 100
	maxPriceCategory = 50
	maxUPC           = 50
	maxDescription   = 65535
)

// columns is the insert order shared by both drivers.
var columns = []string{
	"title", "category", "price_gbp", "price_usd", "price_category_usd", "rating",
	"availability", "in_stock", "stock_quantity", "upc", "product_page_url", "description",
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DSN())
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "store: create %s", dir)
			}
		}
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// PrepareRow converts a record into insert arguments in column order. Text is
// truncated to the column limits, in_stock becomes 0 or 1 and missing numbers
// become NULL.
func PrepareRow(r models.Record) []any {
	inStock := 0
	if r.InStock {
		inStock = 1
	}
	return []any{
		parser.Truncate(r.Title, maxTitle),
		parser.Truncate(r.Category, maxCategory),
		nullable(r.PriceGBP),
		nullable(r.PriceUSD),
		parser.Truncate(r.PriceCategoryUSD, maxPriceCategory),
		nullable(r.Rating),
		parser.Truncate(r.Availability, maxAvailability),
		inStock,
		nullable(r.StockQuantity),
		parser.Truncate(r.UPC, maxUPC),
		r.ProductPageURL,
		parser.Truncate(r.Description, maxDescription),
	}
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
