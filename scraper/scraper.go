package scraper

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/config"
	"github.com/aluiziolira/books-etl/models"
)

// State is the orchestrator's position in a run.
type State int32

const (
	StateIdle State = iota
	StateFetchingListings
	StateEnrichingDetails
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFetchingListings:
		return "FETCHING_LISTINGS"
	case StateEnrichingDetails:
		return "ENRICHING_DETAILS"
	case StateDone:
		return "DONE"
	default:
		return "IDLE"
	}
}

// Scraper walks the catalogue pages in order and enriches every book from its
// detail page. Everything runs on the calling goroutine.
type Scraper struct {
	cfg     config.ScrapeConfig
	fetcher *Fetcher
	details *lru.Cache[string, detail]
	Metrics *Metrics

	state        atomic.Int32
	requestCount int
	pageCount    int
	errorCount   int

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg config.ScrapeConfig) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "scraper: parse base url")
	}
	if parsed.Host == "" {
		return nil, eris.New("scraper: base url must include a host")
	}

	var details *lru.Cache[string, detail]
	if cfg.DetailCacheSize > 0 {
		details, err = lru.New[string, detail](cfg.DetailCacheSize)
		if err != nil {
			return nil, eris.Wrap(err, "scraper: detail cache")
		}
	}

	metrics := NewMetrics()
	return &Scraper{
		cfg:          cfg,
		fetcher:      NewFetcher(cfg, metrics),
		details:      details,
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}, nil
}

// State reports where the current run is.
func (s *Scraper) State() State {
	return State(s.state.Load())
}

func (s *Scraper) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	zap.L().Info("scraper state", zap.Stringer("from", prev), zap.Stringer("to", st))
}

// Run collects listing pages until one comes back empty or the page cap is hit,
// then enriches every book in collection order.
func (s *Scraper) Run(ctx context.Context) (*models.ScraperResult, error) {
	start := time.Now()
	s.setState(StateFetchingListings)

	var books []models.Book
	for page := 1; page <= s.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scraper: listing pages")
		}
		found := s.ScrapePage(ctx, page)
		if len(found) == 0 {
			zap.L().Info("no books found on page, stopping", zap.Int("page", page))
			break
		}
		zap.L().Info("listing page scraped", zap.Int("page", page), zap.Int("books", len(found)))
		books = append(books, found...)
	}

	s.setState(StateEnrichingDetails)
	for i := range books {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scraper: detail pages")
		}
		s.Enrich(ctx, &books[i])
		if (i+1)%50 == 0 {
			zap.L().Info("detail progress", zap.Int("done", i+1), zap.Int("total", len(books)))
		}
	}
	s.setState(StateDone)

	return &models.ScraperResult{
		Books:        books,
		StartTime:    start,
		EndTime:      time.Now(),
		TotalCount:   len(books),
		ErrorCount:   s.errorCount,
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
		RequestCount: s.requestCount,
		PageCount:    s.pageCount,
	}, nil
}

// ScrapePage fetches listing page n and returns its partial books. A failed fetch
// yields no books.
func (s *Scraper) ScrapePage(ctx context.Context, page int) []models.Book {
	doc, err := s.fetch(ctx, "listing", ListingURL(s.cfg.BaseURL, page))
	if err != nil {
		return nil
	}
	books := ExtractListing(doc, s.cfg.BaseURL)
	if len(books) > 0 {
		s.pageCount++
		s.Metrics.IncPages()
		s.Metrics.AddItems(len(books))
	}
	return books
}

// Enrich fills UPC, category and description from the book's detail page and
// replaces availability with the detail page reading. On failure those three
// fields are left empty and the rest of the book is untouched.
func (s *Scraper) Enrich(ctx context.Context, book *models.Book) {
	if s.details != nil {
		if d, ok := s.details.Get(book.ProductPageURL); ok {
			s.Metrics.IncCacheHit()
			d.apply(book)
			return
		}
	}

	doc, err := s.fetch(ctx, "detail", book.ProductPageURL)
	if err != nil {
		clearDetail(book)
		return
	}

	d, err := extractDetail(doc)
	if err != nil {
		zap.L().Error("detail page parse failed", zap.String("url", book.ProductPageURL), zap.Error(err))
		clearDetail(book)
		return
	}

	if s.details != nil {
		s.details.Add(book.ProductPageURL, d)
	}
	d.apply(book)
}

func (s *Scraper) fetch(ctx context.Context, phase, url string) (*goquery.Document, error) {
	s.requestCount++
	doc, err := s.fetcher.Fetch(ctx, phase, url)
	if err != nil {
		s.errorCount++
		s.mu.Lock()
		s.failedURLs = append(s.failedURLs, url)
		var fe *FetchError
		if errors.As(err, &fe) {
			s.errorsByType[fe.Label()]++
		} else {
			s.errorsByType[errorTypeLabel(err)]++
		}
		s.mu.Unlock()
		return nil, err
	}
	return doc, nil
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
