package analysis

import (
	"github.com/bobmcallan/divvy/internal/models"
	"github.com/bobmcallan/divvy/internal/signals"
)

// Safety thresholds on canonical units
const (
	HeavyDebtRatio       = 2.0 // debt/equity
	MaxSustainablePayout = 1.0 // payout ratio
	profitYears          = 3
	// Providers report debt/equity as a percentage (250 = 2.5x).
	debtToEquityScale = 100.0
)

// SafetyInput carries the fundamentals the screen reads.
// Has* flags mark values the provider actually reported.
type SafetyInput struct {
	PayoutRatio     float64
	HasPayoutRatio  bool
	DebtToEquityRaw float64
	HasDebtToEquity bool
	NetIncome       []models.NetIncome // most recent first
	RSI             float64
}

// ScreenSafety raises independent risk flags:
// profit interruption when any of the last three fiscal years lost money,
// heavy debt above 2x debt/equity, unsustainable payout above 100% and
// overheated momentum above RSI 70. Flags are in that fixed order.
func ScreenSafety(in SafetyInput) models.Safety {
	s := models.Safety{RiskFlags: []models.RiskFlag{}}

	if in.HasPayoutRatio {
		pct := in.PayoutRatio * 100
		s.PayoutRatioPct = &pct
	}
	if in.HasDebtToEquity {
		de := in.DebtToEquityRaw / debtToEquityScale
		s.DebtToEquity = &de
	}
	s.ThreeYearProfitable = threeYearProfitable(in.NetIncome)

	if s.ThreeYearProfitable != nil && !*s.ThreeYearProfitable {
		s.RiskFlags = append(s.RiskFlags, models.RiskProfitInterruption)
	}
	if s.DebtToEquity != nil && *s.DebtToEquity > HeavyDebtRatio {
		s.RiskFlags = append(s.RiskFlags, models.RiskHeavyDebt)
	}
	if in.HasPayoutRatio && in.PayoutRatio > MaxSustainablePayout {
		s.RiskFlags = append(s.RiskFlags, models.RiskUnsustainablePayout)
	}
	if in.RSI > signals.OverheatedRSI {
		s.RiskFlags = append(s.RiskFlags, models.RiskOverheated)
	}
	return s
}

// threeYearProfitable is nil when fewer than three years are known
func threeYearProfitable(netIncome []models.NetIncome) *bool {
	if len(netIncome) < profitYears {
		return nil
	}
	years := append([]models.NetIncome(nil), netIncome...)
	models.SortNetIncome(years)
	ok := true
	for _, y := range years[:profitYears] {
		if y.Amount <= 0 {
			ok = false
			break
		}
	}
	return &ok
}
