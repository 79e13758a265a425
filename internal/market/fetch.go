package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/models"
)

// Data kinds reported in RawQuote.Partial
const (
	KindDividends  = "dividends"
	KindPrices     = "prices"
	KindFinancials = "financials"
)

// Fetcher assembles a RawQuote from a provider. The quote is required;
// dividends, prices and financials are fetched concurrently and any that
// fail are recorded as partial rather than failing the symbol.
type Fetcher struct {
	provider      interfaces.MarketDataProvider
	logger        *common.Logger
	pricePeriod   string
	dividendYears int
	now           func() time.Time
}

// NewFetcher creates a fetcher. pricePeriod is a Yahoo-style lookback for
// RSI closes; dividendYears bounds the dividend history requested.
func NewFetcher(provider interfaces.MarketDataProvider, pricePeriod string, dividendYears int, logger *common.Logger) *Fetcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if pricePeriod == "" {
		pricePeriod = "3mo"
	}
	if dividendYears <= 0 {
		dividendYears = 5
	}
	return &Fetcher{
		provider:      provider,
		logger:        logger,
		pricePeriod:   pricePeriod,
		dividendYears: dividendYears,
		now:           time.Now,
	}
}

// WithClock replaces the fetcher clock
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// Fetch retrieves everything the analysis of symbol needs
func (f *Fetcher) Fetch(ctx context.Context, symbol string) (*models.RawQuote, error) {
	quote, err := f.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if quote == nil || quote.Price <= 0 {
		return nil, NewFetchError(f.provider.Name(), symbol, "quote", ErrPartialData, errors.New("no usable price"))
	}

	raw := &models.RawQuote{Quote: *quote}
	since := f.now().AddDate(-f.dividendYears, 0, 0)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		dividends  []models.DividendEvent
		prices     []models.PricePoint
		financials *models.Financials
		timedOut   error
	)

	record := func(kind string, err error) {
		mu.Lock()
		defer mu.Unlock()
		raw.Partial = append(raw.Partial, kind)
		if Classify(err) == ErrProviderTimeout && ctx.Err() != nil {
			timedOut = err
		}
		f.logger.Warn().Err(err).Str("symbol", symbol).Str("kind", kind).Msg("Partial market data")
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		evs, err := f.provider.GetDividendHistory(ctx, symbol, since)
		if err != nil {
			record(KindDividends, err)
			return
		}
		dividends = evs
	}()
	go func() {
		defer wg.Done()
		pts, err := f.provider.GetPriceHistory(ctx, symbol, interfaces.WithPeriod(f.pricePeriod))
		if err != nil {
			record(KindPrices, err)
			return
		}
		prices = pts
	}()
	go func() {
		defer wg.Done()
		fin, err := f.provider.GetFinancials(ctx, symbol)
		if err != nil {
			record(KindFinancials, err)
			return
		}
		financials = fin
	}()
	wg.Wait()

	// The symbol's own deadline expired mid-fetch: drop it rather than
	// analyse half the data.
	if timedOut != nil {
		return nil, fmt.Errorf("%s: %w", symbol, timedOut)
	}

	raw.DividendEvents = append([]models.DividendEvent(nil), dividends...)
	models.SortDividendEvents(raw.DividendEvents)
	raw.PriceHistory = append([]models.PricePoint(nil), prices...)
	models.SortPricePoints(raw.PriceHistory)

	if financials != nil {
		raw.NetIncomeHistory = append([]models.NetIncome(nil), financials.NetIncome...)
		models.SortNetIncome(raw.NetIncomeHistory)
		if !raw.HasDebtToEquity && financials.HasDebtToEquity {
			raw.DebtToEquity = financials.DebtToEquity
			raw.HasDebtToEquity = true
		}
	}

	sort.Strings(raw.Partial)
	return raw, nil
}
