// Package signals provides technical indicator calculations
package signals

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/bobmcallan/divvy/internal/models"
)

// DefaultRSIPeriod is the Wilder lookback used when none is configured
const DefaultRSIPeriod = 14

// Momentum thresholds on the RSI scale
const (
	OverheatedRSI = 70.0
	OversoldRSI   = 35.0
	NeutralRSI    = 50.0
)

// zeroTolerance absorbs the residue of talib's running-sum SMA so a window
// of exact zeros still reads as zero.
const zeroTolerance = 1e-12

// SMA returns the simple moving average of the last period values, or 0
// when there are fewer than period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	out := talib.Sma(values, period)
	return out[len(out)-1]
}

// RSI calculates the Relative Strength Index at the latest close.
// Closes are chronological. Gains and losses are averaged with a simple
// rolling mean over period changes.
//
//   - fewer than period+1 closes: 50 (neutral)
//   - no losses and some gains in the window: 100
//   - no movement at all in the window: 50
func RSI(closes []float64, period int) float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return NeutralRSI
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	if math.Abs(avgLoss) < zeroTolerance {
		if math.Abs(avgGain) < zeroTolerance {
			return NeutralRSI
		}
		return 100
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	return math.Max(0, math.Min(100, rsi))
}

// ClassifyMomentum maps an RSI reading to an entry timing signal
func ClassifyMomentum(rsi float64) models.MomentumSignal {
	switch {
	case rsi > OverheatedRSI:
		return models.MomentumOverheated
	case rsi < OversoldRSI:
		return models.MomentumOversold
	default:
		return models.MomentumNeutral
	}
}
