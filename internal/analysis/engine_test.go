package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/divvy/internal/models"
)

func fixedEngine(now time.Time) *Engine {
	lots := NewLotRegistry(100, map[string]int{"0005.HK": 400})
	return NewEngine(DefaultOptions(), lots).WithClock(func() time.Time { return now })
}

func rising(start float64, n int) []models.PricePoint {
	pts := make([]models.PricePoint, n)
	for i := range pts {
		pts[i] = models.PricePoint{Date: day(2026, 7, 1).AddDate(0, 0, i), Close: start + float64(i)}
	}
	return pts
}

func TestEngine_Analyze_FullRecord(t *testing.T) {
	now := day(2026, 10, 15)
	raw := &models.RawQuote{
		Quote: models.Quote{
			Symbol:               "0005.HK",
			Name:                 "HSBC Holdings",
			Price:                50,
			Currency:             "HKD",
			TrailingDividendRate: 2.5,
			FiveYearAvgYield:     0.05,
			HasFiveYearAvgYield:  true,
			PayoutRatio:          0.55,
			HasPayoutRatio:       true,
			DebtToEquity:         90,
			HasDebtToEquity:      true,
			Source:               "test",
		},
		NetIncomeHistory: incomes(10, 9, 8),
		PriceHistory:     rising(40, 20),
		DividendEvents:   events(day(2025, 10, 30), day(2026, 3, 10), day(2026, 8, 12)),
	}

	rec, err := fixedEngine(now).Analyze(raw, 50000, 1)
	require.NoError(t, err)

	assert.Equal(t, "HSBC Holdings", rec.CompanyName)
	assert.Equal(t, 400, rec.LotSize)
	assert.InDelta(t, 5.0, rec.DividendYieldPct, 1e-9)
	assert.InDelta(t, 20000, rec.MinEntryNative, 1e-9)
	assert.Equal(t, 2, rec.Affordability.MaxLots)
	assert.InDelta(t, 2000, rec.Affordability.ProjectedAnnualIncome, 1e-9)
	assert.Equal(t, []int{3, 8, 10}, rec.DividendMonths)
	assert.Equal(t, models.FrequencySemiAnnual, rec.PaymentFrequency)
	require.NotNil(t, rec.NextExDateEstimate)
	assert.Equal(t, day(2026, 10, 30), *rec.NextExDateEstimate)
	assert.Equal(t, models.UrgencyUrgentSoon, rec.Urgency)
	assert.Equal(t, models.ExDateMethodAnnualCycle, rec.ExDateMethod)
	assert.Equal(t, models.VerdictExpensive, rec.Valuation.Verdict)
	assert.InDelta(t, 100, rec.RSI, 1e-9)
	assert.Equal(t, models.MomentumOverheated, rec.Momentum)
	assert.Equal(t, []models.RiskFlag{models.RiskOverheated}, rec.Safety.RiskFlags)
	assert.Equal(t, now, rec.AnalyzedAt)
	assert.Equal(t, "test", rec.DataSource)
}

func TestEngine_Analyze_EmptyDividendHistory(t *testing.T) {
	raw := &models.RawQuote{
		Quote: models.Quote{Symbol: "GROW", Price: 120, Currency: "USD"},
	}

	rec, err := fixedEngine(day(2026, 10, 15)).Analyze(raw, 10000, 7.8)
	require.NoError(t, err)

	assert.Empty(t, rec.DividendMonths)
	assert.Equal(t, models.FrequencyUnknown, rec.PaymentFrequency)
	assert.Equal(t, models.UrgencyUnknown, rec.Urgency)
	assert.Nil(t, rec.NextExDateEstimate)
	assert.Empty(t, rec.ExDateMethod)
	assert.Equal(t, models.VerdictNoData, rec.Valuation.Verdict)
	assert.Zero(t, rec.DividendYieldPct)
	assert.Zero(t, rec.Affordability.ProjectedAnnualIncome)
	assert.Equal(t, 1, rec.LotSize)
	assert.Equal(t, 10, rec.Affordability.MaxLots) // 120*7.8 = 936 per share
	assert.InDelta(t, 50, rec.RSI, 1e-9)
	assert.Equal(t, "GROW", rec.CompanyName)
}

func TestEngine_Analyze_ForwardRateFallback(t *testing.T) {
	raw := &models.RawQuote{
		Quote: models.Quote{Symbol: "VZ", Price: 40, ForwardDividendRate: 2.7},
	}
	rec, err := fixedEngine(day(2026, 10, 15)).Analyze(raw, 1000, 7.8)
	require.NoError(t, err)
	assert.InDelta(t, 2.7, rec.DividendRateAnnual, 1e-9)
}

func TestEngine_Analyze_NoPrice(t *testing.T) {
	_, err := fixedEngine(day(2026, 1, 1)).Analyze(&models.RawQuote{Quote: models.Quote{Symbol: "X"}}, 1000, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = fixedEngine(day(2026, 1, 1)).Analyze(nil, 1000, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolveDividendRate(t *testing.T) {
	assert.InDelta(t, 1.5, ResolveDividendRate(models.Quote{TrailingDividendRate: 1.5, ForwardDividendRate: 2}), 1e-9)
	assert.InDelta(t, 2.0, ResolveDividendRate(models.Quote{ForwardDividendRate: 2}), 1e-9)
	assert.Zero(t, ResolveDividendRate(models.Quote{}))
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(Options{}, nil)
	assert.Equal(t, DefaultOptions(), e.opts)
	assert.Equal(t, 100, e.Lots().LotSize("0011.HK", 0))
}
