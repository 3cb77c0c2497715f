package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/models"
	"github.com/aluiziolira/books-etl/parser"
)

// ListingURL returns the address of catalogue page n.
func ListingURL(base string, page int) string {
	return fmt.Sprintf("%s/catalogue/page-%d.html", strings.TrimRight(base, "/"), page)
}

// ExtractListing yields one partial book per product card. Cards that cannot be
// parsed are logged and skipped.
func ExtractListing(doc *goquery.Document, base string) []models.Book {
	var books []models.Book
	doc.Find("article.product_pod").Each(func(i int, card *goquery.Selection) {
		book, err := extractCard(card, base)
		if err != nil {
			zap.L().Warn("skipping product card", zap.Int("index", i), zap.Error(err))
			return
		}
		books = append(books, book)
	})
	return books
}

func extractCard(card *goquery.Selection, base string) (book models.Book, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("scraper: parse product card: %v", r)
		}
	}()

	anchor := card.Find("h3 a").First()
	if anchor.Length() == 0 {
		return models.Book{}, eris.New("scraper: product card has no title link")
	}

	book.Title = strings.TrimSpace(anchor.AttrOr("title", ""))
	if href := strings.TrimSpace(anchor.AttrOr("href", "")); href != "" {
		book.ProductPageURL = parser.ResolveDetailURL(base, href)
	}

	priceText := "£0"
	if price := card.Find("p.price_color").First(); price.Length() > 0 {
		priceText = price.Text()
	}
	book.PriceGBP = parser.ParsePrice(priceText)

	book.Rating = parser.RatingFromClass(card.Find("p.star-rating").First().AttrOr("class", ""))

	book.Availability = parser.NormalizeAvailability(card.Find("p.availability").First().Text())
	book.StockQuantity = parser.ParseStock(book.Availability)

	if err := parser.ValidateBook(&book); err != nil {
		return models.Book{}, err
	}
	return book, nil
}

// detail holds what a product page adds to a listing record.
type detail struct {
	UPC             string
	Category        string
	Description     string
	Availability    string
	HasAvailability bool
}

func (d detail) apply(book *models.Book) {
	book.UPC = d.UPC
	book.Category = d.Category
	book.Description = d.Description
	if d.HasAvailability {
		book.Availability = d.Availability
		book.StockQuantity = parser.ParseStock(d.Availability)
	}
}

func clearDetail(book *models.Book) {
	book.UPC = ""
	book.Category = ""
	book.Description = ""
}

// extractDetail reads UPC, category, description and availability from a product page.
func extractDetail(doc *goquery.Document) (d detail, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("scraper: parse detail page: %v", r)
		}
	}()

	doc.Find("table.table-striped tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		th := row.Find("th").First()
		td := row.Find("td").First()
		if th.Length() > 0 && td.Length() > 0 && strings.TrimSpace(th.Text()) == "UPC" {
			d.UPC = strings.TrimSpace(td.Text())
			return false
		}
		return true
	})

	// Home > Books > Category > Title; only the third link is the category.
	if links := doc.Find("ul.breadcrumb a"); links.Length() >= 3 {
		d.Category = strings.TrimSpace(links.Eq(2).Text())
	}

	if header := doc.Find("div#product_description").First(); header.Length() > 0 {
		d.Description = strings.TrimSpace(header.NextAllFiltered("p").First().Text())
	}

	if avail := doc.Find("p.availability").First(); avail.Length() > 0 {
		d.Availability = parser.NormalizeAvailability(avail.Text())
		d.HasAvailability = true
	}

	return d, nil
}
