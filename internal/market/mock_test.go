package market

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/models"
)

// mockProvider is a scripted MarketDataProvider that counts calls
type mockProvider struct {
	name       string
	quote      *models.Quote
	dividends  []models.DividendEvent
	prices     []models.PricePoint
	financials *models.Financials

	quoteErr      error
	dividendsErr  error
	pricesErr     error
	financialsErr error

	delay time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func (m *mockProvider) count(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

func (m *mockProvider) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockProvider) wait(ctx context.Context) error {
	if m.delay == 0 {
		return nil
	}
	select {
	case <-time.After(m.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	m.count("quote")
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	q := *m.quote
	q.Symbol = symbol
	return &q, nil
}

func (m *mockProvider) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error) {
	m.count("dividends")
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.dividends, m.dividendsErr
}

func (m *mockProvider) GetPriceHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) ([]models.PricePoint, error) {
	m.count("prices")
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.prices, m.pricesErr
}

func (m *mockProvider) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	m.count("financials")
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.financials, m.financialsErr
}

type fixedRate struct {
	rate  float64
	err   error
	calls int
}

func (f *fixedRate) Rate(ctx context.Context, from, to string) (float64, error) {
	f.calls++
	return f.rate, f.err
}

// newsProvider is a mockProvider that also serves headlines
type newsProvider struct {
	*mockProvider
	news    []models.NewsItem
	newsErr error
}

func (n *newsProvider) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	n.count("news")
	if n.newsErr != nil {
		return nil, n.newsErr
	}
	return n.news, nil
}
