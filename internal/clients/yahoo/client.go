// Package yahoo provides a market data provider backed by Yahoo Finance
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/market"
	"github.com/bobmcallan/divvy/internal/models"
)

const (
	providerName     = "yahoo"
	DefaultRateLimit = 5 // requests per second
	DefaultRetries   = 2
	DefaultNewsLimit = 5
)

// ErrFinancialsUnsupported is returned by GetFinancials; statements come from another provider
var ErrFinancialsUnsupported = errors.New("yahoo: annual statements not available")

// snapshot is the quote and summary data of one ticker
type snapshot struct {
	Name                 string
	Currency             string
	Exchange             string
	Price                float64
	PreviousClose        float64
	DividendRate         float64 // declared forward annual rate
	TrailingDividendRate float64
	FiveYearAvgYieldPct  float64 // percent, 5.4 means 5.4%
	PayoutRatio          float64
	DebtToEquity         float64 // percent style, 250 means 2.5x
}

type bar struct {
	Date  time.Time
	Close float64
}

type dividend struct {
	Date   time.Time
	Amount float64
}

type article struct {
	Title     string
	Publisher string
	Link      string
	Published time.Time
}

// tickerSource is one open Yahoo ticker session
type tickerSource interface {
	Snapshot() (*snapshot, error)
	History(period string) ([]bar, error)
	Dividends() ([]dividend, error)
	News(count int) ([]article, error)
	Close()
}

// Client implements interfaces.MarketDataProvider over Yahoo Finance
type Client struct {
	open    func(symbol string) (tickerSource, error)
	logger  *common.Logger
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	now     func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithRetries sets how many times a failed call is retried
func WithRetries(retries int) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		open:    openTicker,
		logger:  common.NewSilentLogger(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retries: DefaultRetries,
		backoff: time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider
func (c *Client) Name() string {
	return providerName
}

// withTicker opens a ticker session, retrying with exponential backoff
func withTicker[T any](ctx context.Context, c *Client, symbol, op string, fn func(tickerSource) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << uint(attempt-1)
			c.logger.Warn().Err(lastErr).Str("symbol", symbol).Str("op", op).
				Int("attempt", attempt+1).Dur("wait", wait).Msg("Retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, market.NewFetchError(providerName, symbol, op, nil, ctx.Err())
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, market.NewFetchError(providerName, symbol, op, nil, err)
		}

		t, err := c.open(symbol)
		if err != nil {
			lastErr = fmt.Errorf("failed to create ticker: %w", err)
			continue
		}
		v, err := fn(t)
		t.Close()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if errors.Is(err, market.ErrSymbolNotFound) || errors.Is(err, ErrFinancialsUnsupported) {
			break
		}
	}
	if _, ok := lastErr.(*market.FetchError); ok {
		return zero, lastErr
	}
	return zero, market.NewFetchError(providerName, symbol, op, nil, lastErr)
}

// GetQuote retrieves price, currency, dividend rates and ratios
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return withTicker(ctx, c, symbol, "quote", func(t tickerSource) (*models.Quote, error) {
		s, err := t.Snapshot()
		if err != nil {
			return nil, err
		}
		price := s.Price
		if price <= 0 {
			price = s.PreviousClose
		}
		if price <= 0 {
			return nil, market.NewFetchError(providerName, symbol, "quote", market.ErrSymbolNotFound, errors.New("no price"))
		}

		q := &models.Quote{
			Symbol:               symbol,
			Name:                 s.Name,
			Price:                price,
			Currency:             strings.ToUpper(s.Currency),
			Exchange:             s.Exchange,
			TrailingDividendRate: s.TrailingDividendRate,
			ForwardDividendRate:  s.DividendRate,
			FetchedAt:            c.now(),
			Source:               providerName,
		}
		if s.FiveYearAvgYieldPct > 0 {
			q.FiveYearAvgYield = s.FiveYearAvgYieldPct / 100
			q.HasFiveYearAvgYield = true
		}
		if s.PayoutRatio > 0 {
			q.PayoutRatio = s.PayoutRatio
			q.HasPayoutRatio = true
		}
		if s.DebtToEquity > 0 {
			q.DebtToEquity = s.DebtToEquity
			q.HasDebtToEquity = true
		}
		if q.Currency == "" {
			if strings.HasSuffix(symbol, ".HK") {
				q.Currency = "HKD"
			} else {
				q.Currency = "USD"
			}
		}
		return q, nil
	})
}

// GetDividendHistory retrieves ex-dividend events on or after since
func (c *Client) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error) {
	return withTicker(ctx, c, symbol, "dividends", func(t tickerSource) ([]models.DividendEvent, error) {
		divs, err := t.Dividends()
		if err != nil {
			return nil, err
		}
		events := make([]models.DividendEvent, 0, len(divs))
		for _, d := range divs {
			if d.Date.Before(since) || d.Amount <= 0 {
				continue
			}
			events = append(events, models.DividendEvent{ExDate: d.Date, Amount: d.Amount})
		}
		models.SortDividendEvents(events)
		return events, nil
	})
}

// GetPriceHistory retrieves daily closes, oldest first
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) ([]models.PricePoint, error) {
	p := interfaces.NewHistoryParams(c.now(), opts...)
	period := p.Period
	if period == "" {
		period = periodCovering(c.now().Sub(p.From))
	}

	return withTicker(ctx, c, symbol, "prices", func(t tickerSource) ([]models.PricePoint, error) {
		bars, err := t.History(period)
		if err != nil {
			return nil, err
		}
		points := make([]models.PricePoint, 0, len(bars))
		for _, b := range bars {
			if b.Close <= 0 || b.Date.Before(p.From) || b.Date.After(p.To) {
				continue
			}
			points = append(points, models.PricePoint{Date: b.Date, Close: b.Close})
		}
		models.SortPricePoints(points)
		if p.Limit > 0 && len(points) > p.Limit {
			points = points[len(points)-p.Limit:]
		}
		return points, nil
	})
}

// GetNews retrieves up to limit recent headlines, newest first.
// limit <= 0 means DefaultNewsLimit.
func (c *Client) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	return withTicker(ctx, c, symbol, "news", func(t tickerSource) ([]models.NewsItem, error) {
		articles, err := t.News(limit)
		if err != nil {
			return nil, err
		}
		items := make([]models.NewsItem, 0, len(articles))
		for _, a := range articles {
			if strings.TrimSpace(a.Title) == "" || a.Link == "" {
				continue
			}
			items = append(items, models.NewsItem{
				Title:       a.Title,
				Publisher:   a.Publisher,
				Link:        a.Link,
				PublishedAt: a.Published,
			})
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].PublishedAt.After(items[j].PublishedAt)
		})
		if len(items) > limit {
			items = items[:limit]
		}
		return items, nil
	})
}

// GetFinancials is not served by Yahoo; a fallback provider supplies statements
func (c *Client) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	return nil, market.NewFetchError(providerName, symbol, "financials", market.ErrProviderError, ErrFinancialsUnsupported)
}

// periodCovering returns the smallest Yahoo period spanning d
func periodCovering(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d <= 5*day:
		return "5d"
	case d <= 31*day:
		return "1mo"
	case d <= 92*day:
		return "3mo"
	case d <= 183*day:
		return "6mo"
	case d <= 366*day:
		return "1y"
	case d <= 2*366*day:
		return "2y"
	case d <= 5*366*day:
		return "5y"
	}
	return "max"
}

var (
	_ interfaces.MarketDataProvider = (*Client)(nil)
	_ interfaces.NewsProvider       = (*Client)(nil)
)
