package models

import "time"

// SortKey orders scan results
type SortKey string

const (
	SortByYield     SortKey = "yield"     // highest yield first
	SortByPayout    SortKey = "payout"    // lowest payout ratio first
	SortByValuation SortKey = "valuation" // cheap first, deepest discount first
	SortByUrgency   SortKey = "urgency"   // nearest upcoming ex-date first
	SortByInput     SortKey = "input"     // as requested
)

// ParseSortKey maps free text to a SortKey, reporting whether it was known
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(s) {
	case SortByYield, SortByPayout, SortByValuation, SortByUrgency, SortByInput:
		return SortKey(s), true
	case "":
		return SortByYield, true
	}
	return SortByYield, false
}

// ScanFilters narrows a scan. Pinned symbols are never filtered out.
type ScanFilters struct {
	RequireProfitable bool       `json:"require_profitable,omitempty"`
	MinYieldPct       float64    `json:"min_yield_pct,omitempty"`
	ExcludeFlags      []RiskFlag `json:"exclude_flags,omitempty"`
	AffordableOnly    bool       `json:"affordable_only,omitempty"`
}

// ScanRequest asks for a concurrent analysis of many symbols
type ScanRequest struct {
	Symbols []string    `json:"symbols"`
	Budget  float64     `json:"budget"`
	Sort    SortKey     `json:"sort,omitempty"`
	Pinned  []string    `json:"pinned,omitempty"`
	Filters ScanFilters `json:"filters,omitempty"`
}

// ScanSummary is the roll-up over a scan's surviving records
type ScanSummary struct {
	Count                int     `json:"count"`
	AffordableCount      int     `json:"affordable_count"`
	TotalProjectedIncome float64 `json:"total_projected_income"`
	AverageYieldPct      float64 `json:"average_yield_pct"`
	MedianYieldPct       float64 `json:"median_yield_pct"`
	MinRemainingCash     float64 `json:"min_remaining_cash"`
	Currency             string  `json:"currency"`
}

// ScanResult is the full output of a scan
type ScanResult struct {
	ScanID      string           `json:"scan_id"`
	Budget      float64          `json:"budget"`
	Sort        SortKey          `json:"sort"`
	Records     []AnalysisRecord `json:"records"`
	Dropped     []string         `json:"dropped,omitempty"`
	Filtered    []string         `json:"filtered,omitempty"`
	Summary     ScanSummary      `json:"summary"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// FeeEstimate is the cost of buying a position, in the quote currency
type FeeEstimate struct {
	Symbol         string   `json:"symbol"`
	Market         string   `json:"market"` // "HK" or "US"
	Shares         int      `json:"shares"`
	Price          float64  `json:"price"`
	Currency       string   `json:"currency"`
	TradeValue     float64  `json:"trade_value"`
	Commission     float64  `json:"commission"`
	StampDuty      float64  `json:"stamp_duty"`
	TradingFee     float64  `json:"trading_fee"`
	TotalFees      float64  `json:"total_fees"`
	TotalCost      float64  `json:"total_cost"`
	WithholdingPct float64  `json:"withholding_pct,omitempty"`
	Notes          []string `json:"notes,omitempty"`
}
