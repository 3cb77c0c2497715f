package scraper

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/config"
)

// Request context keys shared between colly callbacks and Fetch.
const (
	ctxPhase  = "phase"
	ctxStart  = "start"
	ctxDoc    = "doc"
	ctxStatus = "status"
	ctxParse  = "parse_err"
)

// Fetcher issues one GET at a time and sleeps a fixed delay after every
// successful fetch. That delay is the only rate limiting the crawl has.
type Fetcher struct {
	collector *colly.Collector
	delay     time.Duration
	metrics   *Metrics
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewFetcher builds a synchronous collector configured from cfg.
func NewFetcher(cfg config.ScrapeConfig, metrics *Metrics) *Fetcher {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &Fetcher{
		collector: collector,
		delay:     cfg.Delay,
		metrics:   metrics,
		sleep:     sleepContext,
	}
	f.configureHandlers()
	return f
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		f.metrics.IncRequest(r.Ctx.Get(ctxPhase))
	})

	f.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			f.metrics.ObserveDuration(r.Ctx.Get(ctxPhase), time.Since(start))
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			r.Ctx.Put(ctxParse, err)
			return
		}
		r.Ctx.Put(ctxDoc, doc)
	})

	f.collector.OnError(func(r *colly.Response, _ error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxStatus, r.StatusCode)
		}
	})
}

// Fetch downloads and parses url. Any transport, status or parse failure is logged
// and returned as a *FetchError; callers treat it as "no data".
func (f *Fetcher) Fetch(ctx context.Context, phase, url string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "scraper: fetch")
	}

	reqCtx := colly.NewContext()
	reqCtx.Put(ctxPhase, phase)

	err := f.collector.Request(http.MethodGet, url, nil, reqCtx, nil)
	if err != nil {
		status, _ := reqCtx.GetAny(ctxStatus).(int)
		return nil, f.fail(&FetchError{URL: url, Status: status, Kind: classifyError(err, status), Err: err})
	}

	doc, _ := reqCtx.GetAny(ctxDoc).(*goquery.Document)
	if doc == nil {
		parseErr, _ := reqCtx.GetAny(ctxParse).(error)
		if parseErr == nil {
			parseErr = eris.New("empty response")
		}
		return nil, f.fail(&FetchError{URL: url, Kind: ErrParse, Err: parseErr})
	}

	if err := f.sleep(ctx, f.delay); err != nil {
		zap.L().Debug("fetch delay interrupted", zap.String("url", url), zap.Error(err))
	}
	return doc, nil
}

func (f *Fetcher) fail(fe *FetchError) error {
	if fe.Kind == nil {
		fe.Kind = errOther
	}
	label := fe.Label()
	f.metrics.IncError(label)
	zap.L().Error("fetch failed",
		zap.String("url", fe.URL),
		zap.Int("status", fe.Status),
		zap.String("category", label),
		zap.Error(fe.Err),
	)
	return fe
}

// WithTransport swaps the HTTP transport, e.g. for a mock in tests.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
