package models

import "time"

// PaymentFrequency is the inferred dividend cadence
type PaymentFrequency string

const (
	FrequencyQuarterly  PaymentFrequency = "quarterly"
	FrequencySemiAnnual PaymentFrequency = "semi_annual"
	FrequencyAnnual     PaymentFrequency = "annual"
	FrequencyIrregular  PaymentFrequency = "irregular"
	FrequencyUnknown    PaymentFrequency = "unknown"
)

// Urgency classifies the countdown to the next estimated ex-date
type Urgency string

const (
	UrgencyUrgentSoon Urgency = "urgent_soon"
	UrgencyNormal     Urgency = "normal"
	UrgencyPast       Urgency = "past"
	UrgencyUnknown    Urgency = "unknown"
)

// ValuationVerdict compares price against the yield-implied target
type ValuationVerdict string

const (
	VerdictCheap     ValuationVerdict = "cheap"
	VerdictExpensive ValuationVerdict = "expensive"
	VerdictNoData    ValuationVerdict = "no_data"
)

// MomentumSignal is the RSI-derived entry timing hint
type MomentumSignal string

const (
	MomentumOverheated MomentumSignal = "overheated"
	MomentumOversold   MomentumSignal = "oversold"
	MomentumNeutral    MomentumSignal = "neutral"
)

// RiskFlag is one safety warning
type RiskFlag string

const (
	RiskProfitInterruption  RiskFlag = "profit_interruption"
	RiskHeavyDebt           RiskFlag = "heavy_debt"
	RiskUnsustainablePayout RiskFlag = "unsustainable_payout"
	RiskOverheated          RiskFlag = "overheated"
)

// ExDateMethodAnnualCycle marks estimates that assume one ex-date per year
const ExDateMethodAnnualCycle = "annual_cycle"

// Affordability is the lot plan for one symbol against the budget.
// MaxLots*CostPerLot == TotalCost and TotalCost+RemainingCash == budget.
type Affordability struct {
	Affordable            bool    `json:"affordable"`
	MaxLots               int     `json:"max_lots"`
	Shares                int     `json:"shares"`
	CostPerLot            float64 `json:"cost_per_lot"`
	TotalCost             float64 `json:"total_cost"`
	RemainingCash         float64 `json:"remaining_cash"`
	ProjectedAnnualIncome float64 `json:"projected_annual_income"`
	Shortfall             float64 `json:"shortfall,omitempty"`
}

// Valuation holds the yield-reversion target and verdict
type Valuation struct {
	TargetPrice *float64         `json:"target_price,omitempty"`
	Verdict     ValuationVerdict `json:"verdict"`
	// Discount is (target-price)/target; positive when Cheap.
	Discount *float64 `json:"discount,omitempty"`
}

// Safety holds the leverage, payout and profitability screen
type Safety struct {
	PayoutRatioPct      *float64   `json:"payout_ratio_pct,omitempty"`
	DebtToEquity        *float64   `json:"debt_to_equity,omitempty"` // canonical ratio, 2.5 means 2.5x
	ThreeYearProfitable *bool      `json:"three_year_profitable,omitempty"`
	RiskFlags           []RiskFlag `json:"risk_flags"`
}

// AnalysisRecord is the per-symbol output of the analysis engine.
// Records are values; nothing mutates one after it is returned.
type AnalysisRecord struct {
	Symbol             string  `json:"symbol"`
	CompanyName        string  `json:"company_name"`
	CurrentPrice       float64 `json:"current_price"`
	Currency           string  `json:"currency"`
	DividendRateAnnual float64 `json:"dividend_rate_annual"`
	DividendYieldPct   float64 `json:"dividend_yield_pct"`
	LotSize            int     `json:"lot_size"`
	FXRate             float64 `json:"fx_rate"`
	MinEntryNative     float64 `json:"min_entry_native"` // one lot in the quote currency

	Affordability Affordability `json:"affordability"`

	DividendMonths   []int            `json:"dividend_months"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency"`

	NextExDateEstimate  *time.Time `json:"next_ex_date_estimate,omitempty"`
	ExDateCountdownDays *int       `json:"ex_date_countdown_days,omitempty"`
	Urgency             Urgency    `json:"urgency"`
	ExDateMethod        string     `json:"ex_date_method,omitempty"`

	Valuation Valuation `json:"valuation"`

	RSI      float64        `json:"rsi"`
	Momentum MomentumSignal `json:"momentum"`

	Safety Safety `json:"safety"`

	// News is attached to single-symbol lookups only, never to scans.
	News []NewsItem `json:"news,omitempty"`

	Pinned      bool      `json:"pinned"`
	PartialData []string  `json:"partial_data,omitempty"`
	DataSource  string    `json:"data_source"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// HasFlag reports whether the record carries the given risk flag
func (r *AnalysisRecord) HasFlag(flag RiskFlag) bool {
	for _, f := range r.Safety.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}
