package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/divvy/internal/models"
)

// FeeSchedule holds trading cost rates in percent
type FeeSchedule struct {
	BrokerRatePct     float64
	HKStampDutyPct    float64
	HKTradingFeePct   float64
	USWithholdingPct  float64
	MinimumCommission float64
}

// EstimateFees prices a purchase of shares at price, in the quote currency.
// HK purchases pay stamp duty and the exchange trading fee on top of broker
// commission and must be whole board lots; US purchases pay commission only
// and carry a dividend withholding notice. shares <= 0 means one lot.
func EstimateFees(symbol string, shares int, price float64, currency string, lotSize int, fs FeeSchedule) (models.FeeEstimate, error) {
	if !finite(price) || price <= 0 {
		return models.FeeEstimate{}, fmt.Errorf("%w: price must be positive, got %v", ErrInvalidInput, price)
	}
	if !finite(fs.BrokerRatePct) || fs.BrokerRatePct < 0 {
		return models.FeeEstimate{}, fmt.Errorf("%w: broker rate must be a non-negative number", ErrInvalidInput)
	}
	if lotSize <= 0 {
		lotSize = 1
	}
	if shares <= 0 {
		shares = lotSize
	}

	market := MarketOf(symbol)
	if market == MarketHK && shares%lotSize != 0 {
		return models.FeeEstimate{}, fmt.Errorf("%w: %d shares is not a multiple of the %d-share lot", ErrInvalidInput, shares, lotSize)
	}

	hundred := decimal.NewFromInt(100)
	value := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(shares)))
	commission := value.Mul(decimal.NewFromFloat(fs.BrokerRatePct)).Div(hundred)
	if floor := decimal.NewFromFloat(fs.MinimumCommission); commission.LessThan(floor) {
		commission = floor
	}

	est := models.FeeEstimate{
		Symbol:     symbol,
		Market:     market,
		Shares:     shares,
		Price:      price,
		Currency:   currency,
		TradeValue: value.InexactFloat64(),
		Commission: commission.InexactFloat64(),
	}

	fees := commission
	switch market {
	case MarketHK:
		stamp := value.Mul(decimal.NewFromFloat(fs.HKStampDutyPct)).Div(hundred)
		trading := value.Mul(decimal.NewFromFloat(fs.HKTradingFeePct)).Div(hundred)
		fees = fees.Add(stamp).Add(trading)
		est.StampDuty = stamp.InexactFloat64()
		est.TradingFee = trading.InexactFloat64()
	case MarketUS:
		est.WithholdingPct = fs.USWithholdingPct
		if fs.USWithholdingPct > 0 {
			est.Notes = append(est.Notes, fmt.Sprintf("US dividends paid to non-resident holders are subject to %.0f%% withholding tax", fs.USWithholdingPct))
		}
	}

	est.TotalFees = fees.InexactFloat64()
	est.TotalCost = value.Add(fees).InexactFloat64()
	return est, nil
}
