package scan

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/divvy/internal/analysis"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/market"
	"github.com/bobmcallan/divvy/internal/models"
)

var testNow = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// stubProvider serves per-symbol quotes and tracks concurrency
type stubProvider struct {
	quotes map[string]models.Quote
	delays map[string]time.Duration

	mu          sync.Mutex
	quoteCalls  map[string]int
	inFlight    int
	maxInFlight int
}

func newStub() *stubProvider {
	return &stubProvider{
		quotes: map[string]models.Quote{
			"0005.HK": {Name: "HSBC", Price: 60, Currency: "HKD", TrailingDividendRate: 3.6, PayoutRatio: 0.5, HasPayoutRatio: true},
			"VZ":      {Name: "Verizon", Price: 40, Currency: "USD", TrailingDividendRate: 2.6, PayoutRatio: 0.6, HasPayoutRatio: true},
			"O":       {Name: "Realty Income", Price: 55, Currency: "USD", TrailingDividendRate: 2.2},
		},
		delays:     map[string]time.Duration{},
		quoteCalls: map[string]int{},
	}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) calls(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quoteCalls[symbol]
}

func (p *stubProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	p.mu.Lock()
	p.quoteCalls[symbol]++
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	delay := p.delays[symbol]
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, market.NewFetchError("stub", symbol, "quote", nil, ctx.Err())
		}
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, market.NewFetchError("stub", symbol, "quote", market.ErrSymbolNotFound, nil)
	}
	q.Symbol = symbol
	return &q, nil
}

func (p *stubProvider) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error) {
	return []models.DividendEvent{
		{ExDate: time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), Amount: 0.9},
		{ExDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), Amount: 0.9},
	}, nil
}

func (p *stubProvider) GetPriceHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) ([]models.PricePoint, error) {
	return nil, nil
}

func (p *stubProvider) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	return &models.Financials{
		Symbol:    symbol,
		NetIncome: []models.NetIncome{{Year: 2024, Amount: 3}, {Year: 2023, Amount: 2}, {Year: 2022, Amount: 1}},
	}, nil
}

func newTestService(p interfaces.MarketDataProvider) *Service {
	now := func() time.Time { return testNow }
	fetcher := market.NewFetcher(p, "3mo", 5, nil).WithClock(now)
	fx := market.NewFXConverter(analysis.NewFXTable("HKD", map[string]float64{"HKD": 1, "USD": 7.8}), nil, time.Hour, nil)
	engine := analysis.NewEngine(analysis.DefaultOptions(), analysis.NewLotRegistry(100, map[string]int{"0005.HK": 400})).WithClock(now)

	svc := NewService(p, fetcher, fx, engine, nil)
	svc.SetFeeSchedule(analysis.FeeSchedule{
		BrokerRatePct:    0.03,
		HKStampDutyPct:   0.1,
		HKTradingFeePct:  0.00565,
		USWithholdingPct: 30,
	})
	svc.newID = func() string { return "scan-1" }
	svc.now = now
	return svc
}

func symbolsOf(records []models.AnalysisRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Symbol)
	}
	return out
}

func TestRunScan_DropsFailuresAndRanks(t *testing.T) {
	svc := newTestService(newStub())

	result, err := svc.RunScan(context.Background(), models.ScanRequest{
		Symbols: []string{"5.hk", "NOPE", "VZ"},
		Budget:  50000,
	})
	require.NoError(t, err)

	assert.Equal(t, "scan-1", result.ScanID)
	assert.Equal(t, models.SortByYield, result.Sort)
	assert.Equal(t, []string{"VZ", "0005.HK"}, symbolsOf(result.Records))
	assert.Equal(t, []string{"NOPE"}, result.Dropped)

	hsbc := result.Records[1]
	assert.Equal(t, 400, hsbc.LotSize)
	assert.True(t, hsbc.Affordability.Affordable)
	assert.InDelta(t, 6.0, hsbc.DividendYieldPct, 1e-9)

	vz := result.Records[0]
	assert.Equal(t, 7.8, vz.FXRate)

	assert.Equal(t, 2, result.Summary.Count)
	assert.Equal(t, "HKD", result.Summary.Currency)
	assert.InDelta(t, 6.25, result.Summary.AverageYieldPct, 1e-9)
}

func TestRunScan_PinnedBypassesFilters(t *testing.T) {
	svc := newTestService(newStub())

	result, err := svc.RunScan(context.Background(), models.ScanRequest{
		Symbols: []string{"VZ", "O"},
		Pinned:  []string{"0005.HK"},
		Budget:  50000,
		Filters: models.ScanFilters{MinYieldPct: 7},
	})
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "0005.HK", result.Records[0].Symbol)
	assert.True(t, result.Records[0].Pinned)
	assert.ElementsMatch(t, []string{"VZ", "O"}, result.Filtered)
}

func TestRunScan_SlowSymbolTimesOut(t *testing.T) {
	stub := newStub()
	stub.delays["O"] = 2 * time.Second
	svc := newTestService(stub)
	svc.SetSymbolTimeout(50 * time.Millisecond)

	result, err := svc.RunScan(context.Background(), models.ScanRequest{
		Symbols: []string{"O", "VZ"},
		Budget:  1000,
		Sort:    models.SortByInput,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"VZ"}, symbolsOf(result.Records))
	assert.Equal(t, []string{"O"}, result.Dropped)
}

func TestRunScan_BoundedConcurrency(t *testing.T) {
	stub := newStub()
	symbols := []string{"A1", "A2", "A3", "A4", "A5", "A6"}
	for _, s := range symbols {
		stub.quotes[s] = models.Quote{Price: 10, Currency: "USD", TrailingDividendRate: 0.5}
		stub.delays[s] = 20 * time.Millisecond
	}
	svc := newTestService(stub)
	svc.SetConcurrency(2)

	result, err := svc.RunScan(context.Background(), models.ScanRequest{Symbols: symbols, Budget: 1000})
	require.NoError(t, err)
	assert.Len(t, result.Records, 6)
	assert.LessOrEqual(t, stub.maxInFlight, 2)
}

func TestStreamScan_EmitsOnlyRecordsThatPassFilters(t *testing.T) {
	svc := newTestService(newStub())

	var emitted []string
	result, err := svc.StreamScan(context.Background(), models.ScanRequest{
		Symbols: []string{"0005.HK", "VZ", "O", "NOPE"},
		Budget:  50000,
		Filters: models.ScanFilters{MinYieldPct: 5},
	}, func(rec models.AnalysisRecord) {
		emitted = append(emitted, rec.Symbol)
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"0005.HK", "VZ"}, emitted)
	assert.ElementsMatch(t, symbolsOf(result.Records), emitted)
	assert.Equal(t, []string{"O"}, result.Filtered)
}

func TestStreamScan_EmitsPinnedDespiteFilters(t *testing.T) {
	svc := newTestService(newStub())

	var emitted []string
	result, err := svc.StreamScan(context.Background(), models.ScanRequest{
		Symbols: []string{"VZ", "O"},
		Pinned:  []string{"O"},
		Budget:  50000,
		Filters: models.ScanFilters{MinYieldPct: 7},
	}, func(rec models.AnalysisRecord) {
		emitted = append(emitted, rec.Symbol)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"O"}, emitted)
	assert.Equal(t, []string{"O"}, symbolsOf(result.Records))
	assert.Equal(t, []string{"VZ"}, result.Filtered)
}

func TestRunScan_InvalidRequests(t *testing.T) {
	svc := newTestService(newStub())
	ctx := context.Background()

	_, err := svc.RunScan(ctx, models.ScanRequest{Symbols: []string{"VZ"}, Budget: -1})
	assert.ErrorIs(t, err, analysis.ErrInvalidInput)

	_, err = svc.RunScan(ctx, models.ScanRequest{Symbols: []string{"VZ"}, Budget: 1000, Sort: "random"})
	assert.ErrorIs(t, err, analysis.ErrInvalidInput)

	_, err = svc.RunScan(ctx, models.ScanRequest{Symbols: []string{"VZ", "$$$"}, Budget: 1000})
	assert.ErrorIs(t, err, analysis.ErrInvalidInput)

	_, err = svc.RunScan(ctx, models.ScanRequest{Budget: 1000})
	assert.ErrorIs(t, err, analysis.ErrInvalidInput)
}

func TestRunScan_RejectsUnusableBudgets(t *testing.T) {
	stub := newStub()
	svc := newTestService(stub)
	ctx := context.Background()

	for _, budget := range []float64{0, math.NaN(), math.Inf(1), math.Inf(-1)} {
		require.NotPanics(t, func() {
			result, err := svc.RunScan(ctx, models.ScanRequest{Symbols: []string{"VZ"}, Budget: budget})
			assert.ErrorIs(t, err, analysis.ErrInvalidInput, "budget %v", budget)
			assert.Nil(t, result)
		})
	}
	assert.Zero(t, stub.calls("VZ"), "rejected before any fetch")
}

func TestRescan_CancelsPrevious(t *testing.T) {
	stub := newStub()
	stub.quotes["SLOW"] = models.Quote{Price: 10, Currency: "USD"}
	stub.delays["SLOW"] = 5 * time.Second
	svc := newTestService(stub)
	svc.SetSymbolTimeout(10 * time.Second)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Rescan(context.Background(), models.ScanRequest{Symbols: []string{"SLOW"}, Budget: 1000})
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return stub.calls("SLOW") == 1 }, time.Second, 5*time.Millisecond)

	result, err := svc.Rescan(context.Background(), models.ScanRequest{Symbols: []string{"VZ"}, Budget: 1000})
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("first rescan was not cancelled")
	}
}

func TestAnalyzeOne(t *testing.T) {
	svc := newTestService(newStub())

	rec, err := svc.AnalyzeOne(context.Background(), "5.HK", 50000)
	require.NoError(t, err)
	assert.Equal(t, "0005.HK", rec.Symbol)
	assert.Equal(t, "HSBC", rec.CompanyName)
	assert.Equal(t, 400, rec.LotSize)

	_, err = svc.AnalyzeOne(context.Background(), "NOPE", 50000)
	assert.ErrorIs(t, err, market.ErrSymbolNotFound)

	_, err = svc.AnalyzeOne(context.Background(), "VZ", -5)
	assert.ErrorIs(t, err, analysis.ErrInvalidInput)
}

func TestAnalyzeOne_RejectsUnusableBudgets(t *testing.T) {
	svc := newTestService(newStub())

	for _, budget := range []float64{0, math.NaN(), math.Inf(1), math.Inf(-1)} {
		require.NotPanics(t, func() {
			rec, err := svc.AnalyzeOne(context.Background(), "0005.HK", budget)
			assert.ErrorIs(t, err, analysis.ErrInvalidInput, "budget %v", budget)
			assert.Nil(t, rec)
		})
	}
}

func TestEstimateFees(t *testing.T) {
	svc := newTestService(newStub())
	ctx := context.Background()

	hk, err := svc.EstimateFees(ctx, "0005.HK", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, hk.Shares)
	assert.Equal(t, analysis.MarketHK, hk.Market)
	assert.InDelta(t, 24000, hk.TradeValue, 1e-9)
	assert.InDelta(t, 7.2, hk.Commission, 1e-9)
	assert.InDelta(t, 24, hk.StampDuty, 1e-9)

	us, err := svc.EstimateFees(ctx, "VZ", 10, 0.1)
	require.NoError(t, err)
	assert.Equal(t, analysis.MarketUS, us.Market)
	assert.InDelta(t, 0.4, us.Commission, 1e-9)
	assert.Zero(t, us.StampDuty)
	assert.Equal(t, 30.0, us.WithholdingPct)

	_, err = svc.EstimateFees(ctx, "0005.HK", 150, -1)
	assert.ErrorIs(t, err, analysis.ErrInvalidInput)
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	stub := newStub()
	cached := market.NewCached(stub, time.Hour, nil)
	svc := newTestService(cached)
	svc.SetCache(cached)
	ctx := context.Background()

	_, err := svc.AnalyzeOne(ctx, "VZ", 1000)
	require.NoError(t, err)
	_, err = svc.AnalyzeOne(ctx, "VZ", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls("VZ"))

	svc.Invalidate("vz")
	_, err = svc.AnalyzeOne(ctx, "VZ", 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls("VZ"))

	svc.Invalidate("")
	_, err = svc.AnalyzeOne(ctx, "VZ", 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, stub.calls("VZ"))
}

func TestWarmer_RunPopulatesCache(t *testing.T) {
	stub := newStub()
	cached := market.NewCached(stub, time.Hour, nil)
	svc := newTestService(cached)
	w := NewWarmer(svc, []string{"0005.HK", "VZ"}, 50000, nil)

	result, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0005.HK", "VZ"}, symbolsOf(result.Records))

	_, err = svc.AnalyzeOne(context.Background(), "VZ", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls("VZ"))
}

func TestWarmer_RejectsBadSchedule(t *testing.T) {
	w := NewWarmer(newTestService(newStub()), []string{"VZ"}, 1000, nil)
	assert.Error(t, w.Start("not a schedule"))
}

// newsStub is a stubProvider that also serves headlines
type newsStub struct {
	*stubProvider
	items []models.NewsItem
	err   error
	limit int
	calls int
}

func (n *newsStub) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	n.calls++
	n.limit = limit
	return n.items, n.err
}

func TestAnalyzeOne_AttachesNews(t *testing.T) {
	stub := &newsStub{stubProvider: newStub(), items: []models.NewsItem{
		{Title: "Interim dividend declared", Link: "https://example.com/1"},
		{Title: "Results", Link: "https://example.com/2"},
	}}
	svc := newTestService(stub)

	rec, err := svc.AnalyzeOne(context.Background(), "0005.HK", 50000)
	require.NoError(t, err)
	require.Len(t, rec.News, 2)
	assert.Equal(t, "Interim dividend declared", rec.News[0].Title)
	assert.Equal(t, DefaultNewsLimit, stub.limit)

	svc.SetNewsLimit(1)
	rec, err = svc.AnalyzeOne(context.Background(), "0005.HK", 50000)
	require.NoError(t, err)
	assert.Len(t, rec.News, 1)
}

func TestAnalyzeOne_NewsFailureKeepsAnalysis(t *testing.T) {
	stub := &newsStub{stubProvider: newStub(), err: market.NewFetchError("stub", "VZ", "news", market.ErrProviderError, nil)}
	svc := newTestService(stub)

	rec, err := svc.AnalyzeOne(context.Background(), "VZ", 50000)
	require.NoError(t, err)
	assert.Equal(t, "VZ", rec.Symbol)
	assert.Empty(t, rec.News)
}

func TestRunScan_DoesNotFetchNews(t *testing.T) {
	stub := &newsStub{stubProvider: newStub(), items: []models.NewsItem{{Title: "x", Link: "y"}}}
	svc := newTestService(stub)

	result, err := svc.RunScan(context.Background(), models.ScanRequest{Symbols: []string{"VZ", "O"}, Budget: 50000})
	require.NoError(t, err)
	assert.Zero(t, stub.calls)
	for _, rec := range result.Records {
		assert.Empty(t, rec.News)
	}
}
