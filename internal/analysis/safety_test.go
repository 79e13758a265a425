package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/divvy/internal/models"
)

func incomes(amounts ...float64) []models.NetIncome {
	out := make([]models.NetIncome, len(amounts))
	for i, a := range amounts {
		out[i] = models.NetIncome{Year: 2025 - i, Amount: a}
	}
	return out
}

func TestScreenSafety_AllFlags(t *testing.T) {
	s := ScreenSafety(SafetyInput{
		PayoutRatio:     1.2,
		HasPayoutRatio:  true,
		DebtToEquityRaw: 250,
		HasDebtToEquity: true,
		NetIncome:       incomes(5, -2, 3),
		RSI:             50,
	})

	require.NotNil(t, s.DebtToEquity)
	assert.InDelta(t, 2.5, *s.DebtToEquity, 1e-9)
	assert.InDelta(t, 120, *s.PayoutRatioPct, 1e-9)
	require.NotNil(t, s.ThreeYearProfitable)
	assert.False(t, *s.ThreeYearProfitable)
	assert.Equal(t, []models.RiskFlag{
		models.RiskProfitInterruption,
		models.RiskHeavyDebt,
		models.RiskUnsustainablePayout,
	}, s.RiskFlags)
}

func TestScreenSafety_Clean(t *testing.T) {
	s := ScreenSafety(SafetyInput{
		PayoutRatio:     0.6,
		HasPayoutRatio:  true,
		DebtToEquityRaw: 80,
		HasDebtToEquity: true,
		NetIncome:       incomes(5, 4, 3, -10),
		RSI:             55,
	})

	require.NotNil(t, s.ThreeYearProfitable)
	assert.True(t, *s.ThreeYearProfitable)
	assert.Empty(t, s.RiskFlags)
}

func TestScreenSafety_Boundaries(t *testing.T) {
	s := ScreenSafety(SafetyInput{
		PayoutRatio:     1.0,
		HasPayoutRatio:  true,
		DebtToEquityRaw: 200,
		HasDebtToEquity: true,
		RSI:             70,
	})
	assert.Empty(t, s.RiskFlags)
}

func TestScreenSafety_Overheated(t *testing.T) {
	s := ScreenSafety(SafetyInput{RSI: 78})
	assert.Equal(t, []models.RiskFlag{models.RiskOverheated}, s.RiskFlags)
}

func TestScreenSafety_MissingData(t *testing.T) {
	s := ScreenSafety(SafetyInput{NetIncome: incomes(5, 4), RSI: 50})

	assert.Nil(t, s.ThreeYearProfitable)
	assert.Nil(t, s.DebtToEquity)
	assert.Nil(t, s.PayoutRatioPct)
	assert.Empty(t, s.RiskFlags)
	assert.NotNil(t, s.RiskFlags)
}

func TestScreenSafety_UsesMostRecentYears(t *testing.T) {
	// supplied oldest first; the screen orders by year
	years := []models.NetIncome{
		{Year: 2020, Amount: -1},
		{Year: 2023, Amount: 2},
		{Year: 2024, Amount: 3},
		{Year: 2025, Amount: 4},
	}
	s := ScreenSafety(SafetyInput{NetIncome: years})
	require.NotNil(t, s.ThreeYearProfitable)
	assert.True(t, *s.ThreeYearProfitable)
}
