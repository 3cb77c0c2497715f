// Package exchange resolves the GBP to USD rate used by the cleaning pipeline.
package exchange

import (
	"context"
	"math"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/config"
)

// Rate sources, reported alongside the rate.
const (
	SourceOverride = "override"
	SourceLive     = "live"
	SourceFallback = "fallback"
)

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// Resolver picks the rate: explicit override, then the live API, then the
// configured fallback constant.
type Resolver struct {
	client   *resty.Client
	override float64
	fallback float64
	url      string
}

// NewResolver builds a resolver from the cleaning configuration.
func NewResolver(cfg config.CleanConfig) *Resolver {
	client := resty.New().
		SetTimeout(cfg.RateTimeout).
		SetHeader("Accept", "application/json")

	return &Resolver{
		client:   client,
		override: cfg.ExchangeRate,
		fallback: cfg.FallbackRate,
		url:      cfg.RateURL,
	}
}

// Client exposes the underlying HTTP client so callers can swap transports.
func (r *Resolver) Client() *resty.Client {
	return r.client
}

// Resolve returns the rate and where it came from. It never fails: any problem
// with the live lookup degrades to the fallback.
func (r *Resolver) Resolve(ctx context.Context) (float64, string) {
	if r.override > 0 {
		zap.L().Info("using exchange rate override", zap.Float64("rate", r.override))
		return r.override, SourceOverride
	}

	if r.url != "" {
		rate, err := r.live(ctx)
		if err == nil {
			zap.L().Info("fetched live exchange rate", zap.Float64("rate", rate))
			return rate, SourceLive
		}
		zap.L().Warn("live exchange rate unavailable, using fallback",
			zap.Float64("fallback", r.fallback),
			zap.Error(err),
		)
	}
	return r.fallback, SourceFallback
}

func (r *Resolver) live(ctx context.Context) (float64, error) {
	var payload ratesResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(r.url)
	if err != nil {
		return 0, eris.Wrap(err, "exchange: request rate")
	}
	if resp.IsError() {
		return 0, eris.Errorf("exchange: rate api returned %s", resp.Status())
	}
	if payload.Result != "success" {
		return 0, eris.Errorf("exchange: rate api result %q", payload.Result)
	}

	usd, ok := payload.Rates["USD"]
	if !ok || usd <= 0 || math.IsNaN(usd) || math.IsInf(usd, 0) {
		return 0, eris.New("exchange: no usable USD rate in response")
	}
	return usd, nil
}
