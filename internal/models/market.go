// Package models defines data structures for Divvy
package models

import (
	"sort"
	"time"
)

// Quote is the price snapshot and dividend-related statistics for a symbol
type Quote struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Exchange string  `json:"exchange,omitempty"`

	// Annual dividend per share, trailing then declared/forward; 0 when unknown.
	TrailingDividendRate float64 `json:"trailing_dividend_rate"`
	ForwardDividendRate  float64 `json:"forward_dividend_rate"`

	// Fractions (0.052 = 5.2%). Has* flags distinguish missing from zero.
	FiveYearAvgYield    float64 `json:"five_year_avg_yield"`
	HasFiveYearAvgYield bool    `json:"has_five_year_avg_yield"`
	PayoutRatio         float64 `json:"payout_ratio"`
	HasPayoutRatio      bool    `json:"has_payout_ratio"`

	// Provider units: percentage-style, 250 means 2.5x.
	DebtToEquity    float64 `json:"debt_to_equity"`
	HasDebtToEquity bool    `json:"has_debt_to_equity"`

	LotSize   int       `json:"lot_size,omitempty"` // shares per board lot when the provider reports one
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source"`
}

// DividendEvent is one historical ex-dividend date with its per-share amount
type DividendEvent struct {
	ExDate time.Time `json:"ex_date"`
	Amount float64   `json:"amount"`
}

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// NetIncome is one fiscal year of reported net income
type NetIncome struct {
	Year   int     `json:"year"`
	Amount float64 `json:"amount"`
}

// Financials holds the statement data used by the safety screen
type Financials struct {
	Symbol string `json:"symbol"`
	// Most recent year first.
	NetIncome []NetIncome `json:"net_income"`
	// Total liabilities over shareholder equity, provider units (x100).
	DebtToEquity    float64   `json:"debt_to_equity"`
	HasDebtToEquity bool      `json:"has_debt_to_equity"`
	FetchedAt       time.Time `json:"fetched_at"`
	Source          string    `json:"source"`
}

// RawQuote is everything fetched for one symbol, assembled for analysis
type RawQuote struct {
	Quote
	NetIncomeHistory []NetIncome     `json:"net_income_history"` // most recent first
	PriceHistory     []PricePoint    `json:"price_history"`      // chronological
	DividendEvents   []DividendEvent `json:"dividend_events"`    // chronological
	// Partial lists the data kinds that could not be fetched.
	Partial []string `json:"partial,omitempty"`
}

// NewsItem is one headline about a symbol
type NewsItem struct {
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher,omitempty"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
}

// Closes returns the close prices in chronological order
func (r *RawQuote) Closes() []float64 {
	closes := make([]float64, 0, len(r.PriceHistory))
	for _, p := range r.PriceHistory {
		closes = append(closes, p.Close)
	}
	return closes
}

// SortDividendEvents orders events by ex-date ascending
func SortDividendEvents(events []DividendEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ExDate.Before(events[j].ExDate)
	})
}

// SortPricePoints orders points by date ascending
func SortPricePoints(points []PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}

// SortNetIncome orders fiscal years most recent first
func SortNetIncome(years []NetIncome) {
	sort.SliceStable(years, func(i, j int) bool {
		return years[i].Year > years[j].Year
	})
}
