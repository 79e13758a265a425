package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/divvy/internal/analysis"
	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
)

// FXConverter serves conversion rates from a live source when one is
// configured, caching them, and falls back to the static table.
type FXConverter struct {
	table  *analysis.FXTable
	live   interfaces.FXRateSource
	cache  *TTLCache[float64]
	logger *common.Logger
}

// NewFXConverter creates a converter; live may be nil
func NewFXConverter(table *analysis.FXTable, live interfaces.FXRateSource, refresh time.Duration, logger *common.Logger) *FXConverter {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &FXConverter{
		table:  table,
		live:   live,
		cache:  NewTTLCache[float64](refresh),
		logger: logger,
	}
}

// Reference returns the currency budgets are expressed in
func (c *FXConverter) Reference() string {
	return c.table.Reference()
}

// Rate returns how many units of `to` one unit of `from` buys
func (c *FXConverter) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	if c.live != nil {
		rate, _, err := c.cache.GetOrLoad(from+to, func() (float64, error) {
			r, err := c.live.Rate(ctx, from, to)
			if err == nil && r <= 0 {
				err = fmt.Errorf("%w: non-positive rate %v", ErrProviderError, r)
			}
			return r, err
		})
		if err == nil && rate > 0 {
			return rate, nil
		}
		c.logger.Warn().Err(err).Str("from", from).Str("to", to).Msg("Live FX rate unavailable, using static table")
	}
	return c.table.Rate(ctx, from, to)
}

// ToReference is Rate(from, Reference())
func (c *FXConverter) ToReference(ctx context.Context, from string) (float64, error) {
	if from == "" {
		from = c.Reference()
	}
	return c.Rate(ctx, from, c.Reference())
}

// Invalidate forgets every cached live rate
func (c *FXConverter) Invalidate() {
	c.cache.InvalidateAll()
}

var _ interfaces.FXRateSource = (*FXConverter)(nil)
