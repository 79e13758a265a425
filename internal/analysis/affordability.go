package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/divvy/internal/models"
)

// PlanAffordability works out how many whole lots the budget buys.
// price and dividendRate are in the quote currency; fxRate converts the
// quote currency into the budget currency. All arithmetic is decimal so
// TotalCost+RemainingCash equals the budget exactly.
func PlanAffordability(price, fxRate float64, lotSize int, budget, dividendRate float64) (models.Affordability, error) {
	if !finite(price) || price <= 0 {
		return models.Affordability{}, fmt.Errorf("%w: price must be positive, got %v", ErrInvalidInput, price)
	}
	if !finite(fxRate) || fxRate <= 0 {
		return models.Affordability{}, fmt.Errorf("%w: fx rate must be positive, got %v", ErrInvalidInput, fxRate)
	}
	if !finite(budget) || budget < 0 {
		return models.Affordability{}, fmt.Errorf("%w: budget must be a non-negative number, got %v", ErrInvalidInput, budget)
	}
	if lotSize <= 0 {
		lotSize = 1
	}
	if !finite(dividendRate) || dividendRate < 0 {
		dividendRate = 0
	}

	b := decimal.NewFromFloat(budget)
	fx := decimal.NewFromFloat(fxRate)
	lot := decimal.NewFromInt(int64(lotSize))
	costPerLot := decimal.NewFromFloat(price).Mul(fx).Mul(lot)

	plan := models.Affordability{
		CostPerLot: costPerLot.InexactFloat64(),
	}

	if b.LessThan(costPerLot) {
		plan.RemainingCash = budget
		plan.Shortfall = costPerLot.Sub(b).InexactFloat64()
		return plan, nil
	}

	maxLots := b.Div(costPerLot).Floor()
	// Div rounds at DivisionPrecision; never let that buy a lot we cannot pay for.
	for maxLots.Mul(costPerLot).GreaterThan(b) {
		maxLots = maxLots.Sub(decimal.NewFromInt(1))
	}
	total := maxLots.Mul(costPerLot)
	shares := maxLots.Mul(lot)

	plan.Affordable = true
	plan.MaxLots = int(maxLots.IntPart())
	plan.Shares = int(shares.IntPart())
	plan.TotalCost = total.InexactFloat64()
	plan.RemainingCash = b.Sub(total).InexactFloat64()
	plan.ProjectedAnnualIncome = decimal.NewFromFloat(dividendRate).Mul(fx).Mul(shares).InexactFloat64()
	return plan, nil
}
