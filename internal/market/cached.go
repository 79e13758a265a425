package market

import (
	"context"
	"strconv"
	"time"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/models"
)

// Cached is a read-through TTL cache in front of a provider. Entries are
// keyed by symbol first so one symbol can be invalidated across data kinds.
type Cached struct {
	inner      interfaces.MarketDataProvider
	logger     *common.Logger
	quotes     *TTLCache[*models.Quote]
	dividends  *TTLCache[[]models.DividendEvent]
	prices     *TTLCache[[]models.PricePoint]
	financials *TTLCache[*models.Financials]
	news       *TTLCache[[]models.NewsItem]
	now        func() time.Time
}

// NewCached wraps inner. Quotes and prices live for ttl; dividends and
// financials for their longer freshness windows, but never less than ttl.
func NewCached(inner interfaces.MarketDataProvider, ttl time.Duration, logger *common.Logger) *Cached {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Cached{
		inner:      inner,
		logger:     logger,
		quotes:     NewTTLCache[*models.Quote](ttl),
		dividends:  NewTTLCache[[]models.DividendEvent](atLeast(common.FreshnessDividends, ttl)),
		prices:     NewTTLCache[[]models.PricePoint](ttl),
		financials: NewTTLCache[*models.Financials](atLeast(common.FreshnessFinancials, ttl)),
		news:       NewTTLCache[[]models.NewsItem](ttl),
		now:        time.Now,
	}
}

// WithClock replaces the clock of every underlying cache
func (c *Cached) WithClock(now func() time.Time) *Cached {
	c.now = now
	c.quotes.WithClock(now)
	c.dividends.WithClock(now)
	c.prices.WithClock(now)
	c.financials.WithClock(now)
	c.news.WithClock(now)
	return c
}

func atLeast(d, floor time.Duration) time.Duration {
	if floor <= 0 {
		return floor
	}
	if d < floor {
		return floor
	}
	return d
}

func (c *Cached) Name() string {
	return c.inner.Name()
}

func (c *Cached) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	q, hit, err := c.quotes.GetOrLoad(symbol, func() (*models.Quote, error) {
		return c.inner.GetQuote(ctx, symbol)
	})
	c.trace(symbol, "quote", hit)
	return q, err
}

func (c *Cached) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error) {
	key := symbol + "|" + since.Format("2006-01-02")
	evs, hit, err := c.dividends.GetOrLoad(key, func() ([]models.DividendEvent, error) {
		return c.inner.GetDividendHistory(ctx, symbol, since)
	})
	c.trace(symbol, "dividends", hit)
	return evs, err
}

func (c *Cached) GetPriceHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) ([]models.PricePoint, error) {
	p := interfaces.NewHistoryParams(c.now(), opts...)
	key := symbol + "|" + p.From.Format("2006-01-02") + "|" + p.To.Format("2006-01-02")
	pts, hit, err := c.prices.GetOrLoad(key, func() ([]models.PricePoint, error) {
		return c.inner.GetPriceHistory(ctx, symbol, interfaces.WithDateRange(p.From, p.To), interfaces.WithLimit(p.Limit))
	})
	c.trace(symbol, "prices", hit)
	return pts, err
}

func (c *Cached) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	fin, hit, err := c.financials.GetOrLoad(symbol, func() (*models.Financials, error) {
		return c.inner.GetFinancials(ctx, symbol)
	})
	c.trace(symbol, "financials", hit)
	return fin, err
}

// GetNews caches headlines for ttl when the wrapped provider serves them
func (c *Cached) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	np, ok := c.inner.(interfaces.NewsProvider)
	if !ok {
		return nil, NewFetchError(c.inner.Name(), symbol, "news", ErrProviderError, ErrNewsUnsupported)
	}
	key := symbol + "|" + strconv.Itoa(limit)
	items, hit, err := c.news.GetOrLoad(key, func() ([]models.NewsItem, error) {
		return np.GetNews(ctx, symbol, limit)
	})
	c.trace(symbol, "news", hit)
	return items, err
}

// Invalidate drops every cached kind for one symbol
func (c *Cached) Invalidate(symbol string) {
	c.quotes.Invalidate(symbol)
	c.financials.Invalidate(symbol)
	c.dividends.InvalidatePrefix(symbol + "|")
	c.prices.InvalidatePrefix(symbol + "|")
	c.news.InvalidatePrefix(symbol + "|")
	c.logger.Debug().Str("symbol", symbol).Msg("Market data cache invalidated")
}

// InvalidateAll empties every cache
func (c *Cached) InvalidateAll() {
	c.quotes.InvalidateAll()
	c.dividends.InvalidateAll()
	c.prices.InvalidateAll()
	c.financials.InvalidateAll()
	c.news.InvalidateAll()
	c.logger.Debug().Msg("Market data cache cleared")
}

func (c *Cached) trace(symbol, kind string, hit bool) {
	c.logger.Trace().Str("symbol", symbol).Str("kind", kind).Bool("hit", hit).Msg("Market data cache lookup")
}

var (
	_ interfaces.MarketDataProvider = (*Cached)(nil)
	_ interfaces.NewsProvider       = (*Cached)(nil)
)
