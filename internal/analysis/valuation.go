package analysis

import "github.com/bobmcallan/divvy/internal/models"

// DefaultValuationMargin pads the historical yield before deriving the target
const DefaultValuationMargin = 1.05

// ClassifyValuation compares price with the price at which the current
// dividend would yield the five-year average yield times margin.
// Both the dividend rate and the average yield must be positive.
func ClassifyValuation(price, dividendRate, avgYield, margin float64) models.Valuation {
	if margin <= 0 {
		margin = DefaultValuationMargin
	}
	if avgYield <= 0 || dividendRate <= 0 {
		return models.Valuation{Verdict: models.VerdictNoData}
	}

	target := dividendRate / (avgYield * margin)
	discount := (target - price) / target
	v := models.Valuation{
		TargetPrice: &target,
		Discount:    &discount,
		Verdict:     models.VerdictExpensive,
	}
	if price <= target {
		v.Verdict = models.VerdictCheap
	}
	return v
}
