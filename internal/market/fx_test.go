package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/divvy/internal/analysis"
)

func table() *analysis.FXTable {
	return analysis.NewFXTable("HKD", map[string]float64{"USD": 7.8})
}

func TestFXConverter_StaticOnly(t *testing.T) {
	c := NewFXConverter(table(), nil, time.Hour, nil)

	rate, err := c.ToReference(context.Background(), "USD")
	require.NoError(t, err)
	assert.InDelta(t, 7.8, rate, 1e-9)

	rate, err = c.ToReference(context.Background(), "")
	require.NoError(t, err)
	assert.InDelta(t, 1, rate, 1e-9)
}

func TestFXConverter_LiveCached(t *testing.T) {
	live := &fixedRate{rate: 7.83}
	c := NewFXConverter(table(), live, time.Hour, nil)

	for i := 0; i < 3; i++ {
		rate, err := c.Rate(context.Background(), "usd", "hkd")
		require.NoError(t, err)
		assert.InDelta(t, 7.83, rate, 1e-9)
	}
	assert.Equal(t, 1, live.calls)

	c.Invalidate()
	_, _ = c.Rate(context.Background(), "USD", "HKD")
	assert.Equal(t, 2, live.calls)
}

func TestFXConverter_LiveFailureFallsBack(t *testing.T) {
	for _, live := range []*fixedRate{{err: errors.New("offline")}, {rate: 0}} {
		c := NewFXConverter(table(), live, time.Hour, nil)
		rate, err := c.Rate(context.Background(), "USD", "HKD")
		require.NoError(t, err)
		assert.InDelta(t, 7.8, rate, 1e-9)
	}
}

func TestFXConverter_UnknownCurrency(t *testing.T) {
	c := NewFXConverter(table(), nil, time.Hour, nil)
	_, err := c.Rate(context.Background(), "GBP", "HKD")
	assert.ErrorIs(t, err, analysis.ErrInvalidInput)
}
