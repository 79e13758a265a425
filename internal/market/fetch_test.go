package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/divvy/internal/models"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestFetcher_AssemblesAndSorts(t *testing.T) {
	p := &mockProvider{
		quote: &models.Quote{Price: 50, Currency: "HKD"},
		dividends: []models.DividendEvent{
			{ExDate: d(2026, 3, 1), Amount: 1},
			{ExDate: d(2025, 9, 1), Amount: 1},
		},
		prices: []models.PricePoint{
			{Date: d(2026, 5, 2), Close: 51},
			{Date: d(2026, 5, 1), Close: 50},
		},
		financials: &models.Financials{
			NetIncome:       []models.NetIncome{{Year: 2023, Amount: 1}, {Year: 2025, Amount: 3}, {Year: 2024, Amount: 2}},
			DebtToEquity:    150,
			HasDebtToEquity: true,
		},
	}

	raw, err := NewFetcher(p, "3mo", 5, nil).Fetch(context.Background(), "0005.HK")
	require.NoError(t, err)

	assert.Equal(t, "0005.HK", raw.Symbol)
	assert.Equal(t, d(2025, 9, 1), raw.DividendEvents[0].ExDate)
	assert.Equal(t, []float64{50, 51}, raw.Closes())
	assert.Equal(t, 2025, raw.NetIncomeHistory[0].Year)
	assert.True(t, raw.HasDebtToEquity)
	assert.InDelta(t, 150, raw.DebtToEquity, 1e-9)
	assert.Empty(t, raw.Partial)
}

func TestFetcher_QuoteDebtToEquityWins(t *testing.T) {
	p := &mockProvider{
		quote:      &models.Quote{Price: 10, DebtToEquity: 80, HasDebtToEquity: true},
		financials: &models.Financials{DebtToEquity: 300, HasDebtToEquity: true},
	}
	raw, err := NewFetcher(p, "", 0, nil).Fetch(context.Background(), "VZ")
	require.NoError(t, err)
	assert.InDelta(t, 80, raw.DebtToEquity, 1e-9)
}

func TestFetcher_PartialData(t *testing.T) {
	p := &mockProvider{
		quote:         &models.Quote{Price: 10},
		financialsErr: NewFetchError("yahoo", "VZ", "financials", ErrProviderError, errors.New("unsupported")),
		pricesErr:     errors.New("boom"),
	}

	raw, err := NewFetcher(p, "3mo", 5, nil).Fetch(context.Background(), "VZ")
	require.NoError(t, err)
	assert.Equal(t, []string{KindFinancials, KindPrices}, raw.Partial)
	assert.Empty(t, raw.NetIncomeHistory)
}

func TestFetcher_QuoteFailureFails(t *testing.T) {
	p := &mockProvider{quoteErr: NewFetchError("yahoo", "NOPE", "quote", ErrSymbolNotFound, nil)}
	_, err := NewFetcher(p, "3mo", 5, nil).Fetch(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
	assert.Equal(t, 0, p.callCount("dividends"))
}

func TestFetcher_ZeroPriceIsPartial(t *testing.T) {
	p := &mockProvider{quote: &models.Quote{Price: 0}}
	_, err := NewFetcher(p, "3mo", 5, nil).Fetch(context.Background(), "HALT")
	assert.ErrorIs(t, err, ErrPartialData)
}

func TestFetcher_DeadlineDropsSymbol(t *testing.T) {
	p := &mockProvider{quote: &models.Quote{Price: 10}}
	slow := &slowAfterQuote{mockProvider: p, delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewFetcher(slow, "3mo", 5, nil).Fetch(ctx, "SLOW")
	assert.ErrorIs(t, err, ErrProviderTimeout)
}

// slowAfterQuote answers the quote at once and stalls everything else
type slowAfterQuote struct {
	*mockProvider
	delay time.Duration
}

func (s *slowAfterQuote) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, NewFetchError("slow", symbol, "dividends", nil, ctx.Err())
	}
}
