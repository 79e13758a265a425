package analysis

import (
	"fmt"
	"time"

	"github.com/bobmcallan/divvy/internal/models"
	"github.com/bobmcallan/divvy/internal/signals"
)

// Options holds the tunable thresholds of an analysis
type Options struct {
	LookbackDays     int
	UrgentWindowDays int
	ValuationMargin  float64
	RSIPeriod        int
}

// DefaultOptions returns the standard thresholds
func DefaultOptions() Options {
	return Options{
		LookbackDays:     DefaultLookbackDays,
		UrgentWindowDays: DefaultUrgentWindowDays,
		ValuationMargin:  DefaultValuationMargin,
		RSIPeriod:        signals.DefaultRSIPeriod,
	}
}

// Engine merges the individual screens into one record per symbol
type Engine struct {
	opts Options
	lots *LotRegistry
	now  func() time.Time
}

// NewEngine creates an engine; zero-valued options take their defaults
func NewEngine(opts Options, lots *LotRegistry) *Engine {
	def := DefaultOptions()
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = def.LookbackDays
	}
	if opts.UrgentWindowDays <= 0 {
		opts.UrgentWindowDays = def.UrgentWindowDays
	}
	if opts.ValuationMargin <= 0 {
		opts.ValuationMargin = def.ValuationMargin
	}
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = def.RSIPeriod
	}
	if lots == nil {
		lots = NewLotRegistry(0, nil)
	}
	return &Engine{opts: opts, lots: lots, now: time.Now}
}

// WithClock replaces the engine's notion of today
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Lots exposes the engine's lot registry
func (e *Engine) Lots() *LotRegistry {
	return e.lots
}

// ResolveDividendRate picks the annual dividend per share: trailing when
// reported, otherwise the declared forward rate, otherwise zero.
func ResolveDividendRate(q models.Quote) float64 {
	if q.TrailingDividendRate > 0 {
		return q.TrailingDividendRate
	}
	if q.ForwardDividendRate > 0 {
		return q.ForwardDividendRate
	}
	return 0
}

// Analyze builds the analysis record for one symbol. budget is in the
// reference currency and fxRate converts the quote currency into it.
func (e *Engine) Analyze(raw *models.RawQuote, budget, fxRate float64) (models.AnalysisRecord, error) {
	if raw == nil {
		return models.AnalysisRecord{}, fmt.Errorf("%w: no market data", ErrInvalidInput)
	}
	if raw.Price <= 0 {
		return models.AnalysisRecord{}, fmt.Errorf("%w: %s has no usable price", ErrInvalidInput, raw.Symbol)
	}

	now := e.now()
	rate := ResolveDividendRate(raw.Quote)
	lotSize := e.lots.LotSize(raw.Symbol, raw.LotSize)

	plan, err := PlanAffordability(raw.Price, fxRate, lotSize, budget, rate)
	if err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("%s: %w", raw.Symbol, err)
	}

	months, freq := ExtractCalendar(raw.DividendEvents, now, e.opts.LookbackDays)
	forecast := PredictExDate(raw.DividendEvents, now, e.opts.UrgentWindowDays)

	var valuation models.Valuation
	if raw.HasFiveYearAvgYield {
		valuation = ClassifyValuation(raw.Price, rate, raw.FiveYearAvgYield, e.opts.ValuationMargin)
	} else {
		valuation = models.Valuation{Verdict: models.VerdictNoData}
	}

	rsi := signals.RSI(raw.Closes(), e.opts.RSIPeriod)

	safety := ScreenSafety(SafetyInput{
		PayoutRatio:     raw.PayoutRatio,
		HasPayoutRatio:  raw.HasPayoutRatio,
		DebtToEquityRaw: raw.DebtToEquity,
		HasDebtToEquity: raw.HasDebtToEquity,
		NetIncome:       raw.NetIncomeHistory,
		RSI:             rsi,
	})

	rec := models.AnalysisRecord{
		Symbol:              raw.Symbol,
		CompanyName:         raw.Name,
		CurrentPrice:        raw.Price,
		Currency:            raw.Currency,
		DividendRateAnnual:  rate,
		DividendYieldPct:    rate / raw.Price * 100,
		LotSize:             lotSize,
		FXRate:              fxRate,
		MinEntryNative:      raw.Price * float64(lotSize),
		Affordability:       plan,
		DividendMonths:      months,
		PaymentFrequency:    freq,
		NextExDateEstimate:  forecast.Estimate,
		ExDateCountdownDays: forecast.CountdownDays,
		Urgency:             forecast.Urgency,
		Valuation:           valuation,
		RSI:                 rsi,
		Momentum:            signals.ClassifyMomentum(rsi),
		Safety:              safety,
		PartialData:         raw.Partial,
		DataSource:          raw.Source,
		AnalyzedAt:          now,
	}
	if forecast.Estimate != nil {
		rec.ExDateMethod = models.ExDateMethodAnnualCycle
	}
	if rec.CompanyName == "" {
		rec.CompanyName = raw.Symbol
	}
	return rec, nil
}
