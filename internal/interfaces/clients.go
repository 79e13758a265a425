// Package interfaces defines service contracts for Divvy
package interfaces

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/divvy/internal/models"
)

// MarketDataProvider supplies the raw inputs of a per-symbol analysis.
// Implementations return errors wrapping the market package sentinels
// (not found, timeout, provider error) so callers can classify them.
type MarketDataProvider interface {
	// Name identifies the provider in logs and records
	Name() string

	// GetQuote retrieves price, currency, dividend rates and ratios
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// GetDividendHistory retrieves ex-dividend events on or after since, chronological
	GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error)

	// GetPriceHistory retrieves daily closes, chronological
	GetPriceHistory(ctx context.Context, symbol string, opts ...HistoryOption) ([]models.PricePoint, error)

	// GetFinancials retrieves annual net income and leverage
	GetFinancials(ctx context.Context, symbol string) (*models.Financials, error)
}

// NewsProvider supplies recent headlines for a symbol, newest first
type NewsProvider interface {
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// FXRateSource converts between currencies
type FXRateSource interface {
	// Rate returns how many units of `to` one unit of `from` buys
	Rate(ctx context.Context, from, to string) (float64, error)
}

// HistoryOption configures price history requests
type HistoryOption func(*HistoryParams)

// HistoryParams holds price history query parameters
type HistoryParams struct {
	From   time.Time
	To     time.Time
	Period string // Yahoo-style: 1mo, 3mo, 6mo, 1y
	Limit  int
}

// WithDateRange sets the date range for a history query
func WithDateRange(from, to time.Time) HistoryOption {
	return func(p *HistoryParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets a relative lookback for a history query
func WithPeriod(period string) HistoryOption {
	return func(p *HistoryParams) {
		p.Period = period
	}
}

// WithLimit caps the number of points returned
func WithLimit(limit int) HistoryOption {
	return func(p *HistoryParams) {
		p.Limit = limit
	}
}

// NewHistoryParams applies opts and resolves Period into From/To against now.
// Without any option the lookback is three months.
func NewHistoryParams(now time.Time, opts ...HistoryOption) HistoryParams {
	p := HistoryParams{}
	for _, opt := range opts {
		opt(&p)
	}
	if p.To.IsZero() {
		p.To = now
	}
	if p.From.IsZero() {
		if p.Period == "" {
			p.Period = "3mo"
		}
		p.From = PeriodStart(p.To, p.Period)
	}
	return p
}

// PeriodStart returns the start of a Yahoo-style period (5d, 1mo, 3mo, 1y) ending at end.
// Unknown periods fall back to three months.
func PeriodStart(end time.Time, period string) time.Time {
	period = strings.ToLower(strings.TrimSpace(period))
	unitAt := strings.IndexFunc(period, func(r rune) bool { return r < '0' || r > '9' })
	if unitAt <= 0 {
		return end.AddDate(0, -3, 0)
	}
	n, err := strconv.Atoi(period[:unitAt])
	if err != nil || n <= 0 {
		return end.AddDate(0, -3, 0)
	}
	switch period[unitAt:] {
	case "d":
		return end.AddDate(0, 0, -n)
	case "wk":
		return end.AddDate(0, 0, -7*n)
	case "mo":
		return end.AddDate(0, -n, 0)
	case "y":
		return end.AddDate(-n, 0, 0)
	}
	return end.AddDate(0, -3, 0)
}
