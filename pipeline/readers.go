package pipeline

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/parser"
)

// csvRow mirrors both dataset headers as text so that malformed numbers can be
// coerced instead of failing the whole file. Columns absent from a raw file stay empty.
type csvRow struct {
	Title            string `csv:"title"`
	Category         string `csv:"category"`
	PriceGBP         string `csv:"price_gbp"`
	PriceUSD         string `csv:"price_usd"`
	PriceCategoryUSD string `csv:"price_category_usd"`
	Rating           string `csv:"rating"`
	Availability     string `csv:"availability"`
	InStock          string `csv:"in_stock"`
	StockQuantity    string `csv:"stock_quantity"`
	UPC              string `csv:"upc"`
	ProductPageURL   string `csv:"product_page_url"`
	Description      string `csv:"description"`
}

// ReadRecords loads a raw or cleaned CSV dataset.
func ReadRecords(filename string) ([]models.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open %s", filename)
	}
	defer f.Close()

	records, err := DecodeRecords(f)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", filename)
	}
	return records, nil
}

// DecodeRecords decodes CSV rows. Numbers that do not parse become nil and
// in_stock accepts true/1/yes/y in any case.
func DecodeRecords(r io.Reader) ([]models.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	decoder, err := csvutil.NewDecoder(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "pipeline: read csv header")
	}

	var records []models.Record
	for {
		var row csvRow
		if err := decoder.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "pipeline: decode csv row %d", len(records)+1)
		}
		records = append(records, row.record())
	}
	return records, nil
}

func (r csvRow) record() models.Record {
	return models.Record{
		Title:            r.Title,
		Category:         r.Category,
		PriceGBP:         parseFloat(r.PriceGBP),
		PriceUSD:         parseFloat(r.PriceUSD),
		PriceCategoryUSD: r.PriceCategoryUSD,
		Rating:           parseInt(r.Rating),
		Availability:     r.Availability,
		InStock:          parser.ParseBool(r.InStock),
		StockQuantity:    parseInt(r.StockQuantity),
		UPC:              r.UPC,
		ProductPageURL:   r.ProductPageURL,
		Description:      r.Description,
	}
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseInt accepts integral floats such as "22.0".
func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil || *f != math.Trunc(*f) {
		return nil
	}
	v := int(*f)
	return &v
}
