// Package fxrate reads live currency pair rates from Yahoo Finance charts
package fxrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
)

// ErrNoRate is returned when a pair has no usable close in the lookback window
var ErrNoRate = errors.New("fxrate: no rate available")

// closeFunc returns the daily closes of symbol between start and end, oldest first
type closeFunc func(symbol string, start, end time.Time) ([]decimal.Decimal, error)

// Client implements interfaces.FXRateSource
type Client struct {
	closes   closeFunc
	lookback time.Duration
	logger   *common.Logger
	now      func() time.Time
}

// NewClient creates a live rate source
func NewClient(logger *common.Logger) *Client {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Client{
		closes:   chartCloses,
		lookback: 7 * 24 * time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

// PairSymbol returns the Yahoo chart symbol quoting one unit of from in to
func PairSymbol(from, to string) string {
	return strings.ToUpper(from) + strings.ToUpper(to) + "=X"
}

// Rate returns the latest close of the from/to pair
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	symbol := PairSymbol(from, to)
	end := c.now()
	start := end.Add(-c.lookback)

	type result struct {
		closes []decimal.Decimal
		err    error
	}
	done := make(chan result, 1)
	go func() {
		closes, err := c.closes(symbol, start, end)
		done <- result{closes, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	if r.err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", symbol, r.err)
	}

	for i := len(r.closes) - 1; i >= 0; i-- {
		if r.closes[i].IsPositive() {
			rate := r.closes[i].InexactFloat64()
			c.logger.Debug().Str("pair", symbol).Float64("rate", rate).Msg("Live FX rate")
			return rate, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", symbol, ErrNoRate)
}

func chartCloses(symbol string, start, end time.Time) ([]decimal.Decimal, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	var closes []decimal.Decimal
	for iter.Next() {
		closes = append(closes, iter.Bar().Close)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return closes, nil
}

var _ interfaces.FXRateSource = (*Client)(nil)
