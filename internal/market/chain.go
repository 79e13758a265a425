package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/models"
)

// Chain tries providers in order for each call and returns the first success.
// A cancelled context stops the chain immediately.
type Chain struct {
	providers []interfaces.MarketDataProvider
	logger    *common.Logger
}

// NewChain creates a fallback chain; nil providers are skipped
func NewChain(logger *common.Logger, providers ...interfaces.MarketDataProvider) *Chain {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	var ps []interfaces.MarketDataProvider
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Chain{providers: ps, logger: logger}
}

func (c *Chain) Name() string {
	if len(c.providers) == 1 {
		return c.providers[0].Name()
	}
	name := "chain"
	for _, p := range c.providers {
		name += ":" + p.Name()
	}
	return name
}

func (c *Chain) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return try(ctx, c, symbol, "quote", func(p interfaces.MarketDataProvider) (*models.Quote, error) {
		return p.GetQuote(ctx, symbol)
	})
}

func (c *Chain) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error) {
	return try(ctx, c, symbol, "dividends", func(p interfaces.MarketDataProvider) ([]models.DividendEvent, error) {
		return p.GetDividendHistory(ctx, symbol, since)
	})
}

func (c *Chain) GetPriceHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) ([]models.PricePoint, error) {
	return try(ctx, c, symbol, "prices", func(p interfaces.MarketDataProvider) ([]models.PricePoint, error) {
		return p.GetPriceHistory(ctx, symbol, opts...)
	})
}

func (c *Chain) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	return try(ctx, c, symbol, "financials", func(p interfaces.MarketDataProvider) (*models.Financials, error) {
		return p.GetFinancials(ctx, symbol)
	})
}

// GetNews asks only the providers that serve headlines
func (c *Chain) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	news := &Chain{logger: c.logger}
	for _, p := range c.providers {
		if _, ok := p.(interfaces.NewsProvider); ok {
			news.providers = append(news.providers, p)
		}
	}
	if len(news.providers) == 0 {
		return nil, NewFetchError(c.Name(), symbol, "news", ErrProviderError, ErrNewsUnsupported)
	}
	return try(ctx, news, symbol, "news", func(p interfaces.MarketDataProvider) ([]models.NewsItem, error) {
		return p.(interfaces.NewsProvider).GetNews(ctx, symbol, limit)
	})
}

func try[T any](ctx context.Context, c *Chain, symbol, op string, call func(interfaces.MarketDataProvider) (T, error)) (T, error) {
	var zero T
	if len(c.providers) == 0 {
		return zero, NewFetchError("chain", symbol, op, ErrProviderError, errors.New("no providers configured"))
	}

	var lastErr error
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return zero, NewFetchError(p.Name(), symbol, op, nil, err)
		}
		v, err := call(p)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i < len(c.providers)-1 {
			c.logger.Debug().Err(err).Str("symbol", symbol).Str("op", op).
				Str("provider", p.Name()).Msg("Provider failed, trying fallback")
		}
	}
	if Classify(lastErr) == ErrProviderError {
		var fe *FetchError
		if !errors.As(lastErr, &fe) {
			lastErr = NewFetchError(c.Name(), symbol, op, nil, lastErr)
		}
	}
	return zero, fmt.Errorf("%s %s: %w", op, symbol, lastErr)
}

var (
	_ interfaces.MarketDataProvider = (*Chain)(nil)
	_ interfaces.NewsProvider       = (*Chain)(nil)
)
