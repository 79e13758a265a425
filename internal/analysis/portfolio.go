package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/bobmcallan/divvy/internal/models"
)

// Summarize rolls a scan's records up into portfolio totals.
// With no records the minimum remaining cash is the untouched budget.
func Summarize(records []models.AnalysisRecord, budget float64, currency string) models.ScanSummary {
	sum := models.ScanSummary{
		Count:            len(records),
		MinRemainingCash: budget,
		Currency:         currency,
	}
	if len(records) == 0 {
		return sum
	}

	yields := make(stats.Float64Data, 0, len(records))
	minCash := math.Inf(1)
	for _, r := range records {
		sum.TotalProjectedIncome += r.Affordability.ProjectedAnnualIncome
		if r.Affordability.Affordable {
			sum.AffordableCount++
		}
		if r.Affordability.RemainingCash < minCash {
			minCash = r.Affordability.RemainingCash
		}
		yields = append(yields, r.DividendYieldPct)
	}
	sum.MinRemainingCash = minCash

	if mean, err := yields.Mean(); err == nil {
		sum.AverageYieldPct = mean
	}
	if median, err := yields.Median(); err == nil {
		sum.MedianYieldPct = median
	}
	return sum
}

// ApplyFilters removes records that fail the scan filters, returning the
// survivors and the symbols removed. Pinned records always survive.
func ApplyFilters(records []models.AnalysisRecord, f models.ScanFilters) ([]models.AnalysisRecord, []string) {
	kept := make([]models.AnalysisRecord, 0, len(records))
	var removed []string
	for _, r := range records {
		if Passes(&r, f) {
			kept = append(kept, r)
		} else {
			removed = append(removed, r.Symbol)
		}
	}
	return kept, removed
}

// Passes reports whether a record survives the filters. Pinned records always do.
func Passes(r *models.AnalysisRecord, f models.ScanFilters) bool {
	if r.Pinned {
		return true
	}
	if f.RequireProfitable && (r.Safety.ThreeYearProfitable == nil || !*r.Safety.ThreeYearProfitable) {
		return false
	}
	if f.MinYieldPct > 0 && r.DividendYieldPct < f.MinYieldPct {
		return false
	}
	if f.AffordableOnly && !r.Affordability.Affordable {
		return false
	}
	for _, flag := range f.ExcludeFlags {
		if r.HasFlag(flag) {
			return false
		}
	}
	return true
}

// Rank sorts records in place by key. The sort is stable and pinned
// records always come first, keeping their relative order by key.
func Rank(records []models.AnalysisRecord, key models.SortKey) {
	less := lessFunc(key)
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if less == nil {
			return false
		}
		return less(a, b)
	})
}

func lessFunc(key models.SortKey) func(a, b *models.AnalysisRecord) bool {
	switch key {
	case models.SortByYield:
		return func(a, b *models.AnalysisRecord) bool {
			return a.DividendYieldPct > b.DividendYieldPct
		}
	case models.SortByPayout:
		return func(a, b *models.AnalysisRecord) bool {
			pa, pb := a.Safety.PayoutRatioPct, b.Safety.PayoutRatioPct
			if pa == nil || pb == nil {
				return pa != nil && pb == nil
			}
			return *pa < *pb
		}
	case models.SortByValuation:
		return func(a, b *models.AnalysisRecord) bool {
			ra, rb := verdictRank(a.Valuation.Verdict), verdictRank(b.Valuation.Verdict)
			if ra != rb {
				return ra < rb
			}
			da, db := a.Valuation.Discount, b.Valuation.Discount
			if da == nil || db == nil {
				return false
			}
			return *da > *db
		}
	case models.SortByUrgency:
		return func(a, b *models.AnalysisRecord) bool {
			ra, rb := urgencyRank(a.Urgency), urgencyRank(b.Urgency)
			if ra != rb {
				return ra < rb
			}
			ca, cb := a.ExDateCountdownDays, b.ExDateCountdownDays
			if ca == nil || cb == nil {
				return false
			}
			if a.Urgency == models.UrgencyPast {
				return *ca > *cb
			}
			return *ca < *cb
		}
	}
	return nil
}

func verdictRank(v models.ValuationVerdict) int {
	switch v {
	case models.VerdictCheap:
		return 0
	case models.VerdictExpensive:
		return 1
	default:
		return 2
	}
}

func urgencyRank(u models.Urgency) int {
	switch u {
	case models.UrgencyUrgentSoon:
		return 0
	case models.UrgencyNormal:
		return 1
	case models.UrgencyPast:
		return 2
	default:
		return 3
	}
}
