package report

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/divvy/internal/models"
)

// formatScan generates the scan summary and ranked table
func formatScan(result *models.ScanResult) string {
	if result == nil {
		return "No scan result.\n"
	}
	var sb strings.Builder
	sum := result.Summary

	sb.WriteString("# Dividend Scan\n\n")
	sb.WriteString(fmt.Sprintf("**Scan:** %s\n", result.ScanID))
	sb.WriteString(fmt.Sprintf("**Date:** %s\n", result.CompletedAt.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("**Budget:** %s\n", formatMoney(result.Budget, sum.Currency)))
	sb.WriteString(fmt.Sprintf("**Sorted by:** %s\n\n", result.Sort))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Symbols analysed: %d (%d affordable)\n", sum.Count, sum.AffordableCount))
	sb.WriteString(fmt.Sprintf("- Projected annual income: %s\n", formatMoney(sum.TotalProjectedIncome, sum.Currency)))
	sb.WriteString(fmt.Sprintf("- Average yield: %.2f%% (median %.2f%%)\n", sum.AverageYieldPct, sum.MedianYieldPct))
	sb.WriteString(fmt.Sprintf("- Minimum remaining cash: %s\n\n", formatMoney(sum.MinRemainingCash, sum.Currency)))

	if len(result.Records) > 0 {
		sb.WriteString("## Ranked\n\n")
		sb.WriteString("| Symbol | Name | Price | Yield | Lots | Income | Next Ex-Date | Valuation | RSI | Flags |\n")
		sb.WriteString("|--------|------|-------|-------|------|--------|--------------|-----------|-----|-------|\n")
		for i := range result.Records {
			r := &result.Records[i]
			symbol := r.Symbol
			if r.Pinned {
				symbol += " *"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f%% | %d | %s | %s | %s | %.0f | %s |\n",
				symbol, r.CompanyName,
				formatMoney(r.CurrentPrice, r.Currency),
				r.DividendYieldPct,
				r.Affordability.MaxLots,
				formatMoney(r.Affordability.ProjectedAnnualIncome, sum.Currency),
				formatExDate(r),
				formatVerdict(r.Valuation.Verdict),
				r.RSI,
				formatFlags(r.Safety.RiskFlags),
			))
		}
		sb.WriteString("\n")
	}

	if len(result.Filtered) > 0 {
		sb.WriteString(fmt.Sprintf("**Filtered out:** %s\n", strings.Join(result.Filtered, ", ")))
	}
	if len(result.Dropped) > 0 {
		sb.WriteString(fmt.Sprintf("**Unavailable:** %s\n", strings.Join(result.Dropped, ", ")))
	}
	return sb.String()
}

// formatRecord generates the detail view of one symbol
func formatRecord(r *models.AnalysisRecord) string {
	if r == nil {
		return "No analysis.\n"
	}
	var sb strings.Builder
	a := r.Affordability

	sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", r.CompanyName, r.Symbol))
	sb.WriteString(fmt.Sprintf("**Price:** %s\n", formatMoney(r.CurrentPrice, r.Currency)))
	sb.WriteString(fmt.Sprintf("**Dividend:** %s / year (%.2f%% yield, %s)\n",
		formatMoney(r.DividendRateAnnual, r.Currency), r.DividendYieldPct, strings.ReplaceAll(string(r.PaymentFrequency), "_", "-")))
	sb.WriteString(fmt.Sprintf("**Board lot:** %d shares, %s per lot\n\n", r.LotSize, formatMoney(r.MinEntryNative, r.Currency)))

	sb.WriteString("## Affordability\n\n")
	if a.Affordable {
		sb.WriteString(fmt.Sprintf("- %d lots (%d shares) for %.2f, leaving %.2f\n", a.MaxLots, a.Shares, a.TotalCost, a.RemainingCash))
		sb.WriteString(fmt.Sprintf("- Projected annual income: %.2f\n", a.ProjectedAnnualIncome))
	} else {
		sb.WriteString(fmt.Sprintf("- Not affordable: one lot costs %.2f, short by %.2f\n", a.CostPerLot, a.Shortfall))
	}
	sb.WriteString("\n## Calendar\n\n")
	sb.WriteString(fmt.Sprintf("- Pays in: %s\n", formatMonths(r.DividendMonths)))
	sb.WriteString(fmt.Sprintf("- Next ex-date: %s\n\n", formatExDate(r)))

	sb.WriteString("## Signals\n\n")
	sb.WriteString(fmt.Sprintf("- Valuation: %s", formatVerdict(r.Valuation.Verdict)))
	if r.Valuation.TargetPrice != nil {
		sb.WriteString(fmt.Sprintf(" (target %s)", formatMoney(*r.Valuation.TargetPrice, r.Currency)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("- RSI: %.1f (%s)\n", r.RSI, r.Momentum))
	if r.Safety.PayoutRatioPct != nil {
		sb.WriteString(fmt.Sprintf("- Payout ratio: %.1f%%\n", *r.Safety.PayoutRatioPct))
	}
	if r.Safety.DebtToEquity != nil {
		sb.WriteString(fmt.Sprintf("- Debt/equity: %.2fx\n", *r.Safety.DebtToEquity))
	}
	if p := r.Safety.ThreeYearProfitable; p != nil {
		sb.WriteString(fmt.Sprintf("- Profitable 3 years running: %s\n", yesNo(*p)))
	}
	sb.WriteString(fmt.Sprintf("- Flags: %s\n", formatFlags(r.Safety.RiskFlags)))

	if len(r.News) > 0 {
		sb.WriteString("\n## News\n\n")
		for _, n := range r.News {
			sb.WriteString(fmt.Sprintf("- [%s](%s)", n.Title, n.Link))
			if n.Publisher != "" {
				sb.WriteString(" - " + n.Publisher)
			}
			sb.WriteString("\n")
		}
	}

	if len(r.PartialData) > 0 {
		sb.WriteString(fmt.Sprintf("\n_Missing data: %s_\n", strings.Join(r.PartialData, ", ")))
	}
	return sb.String()
}

func formatMoney(v float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%s %.2f", currency, v)
}

func formatExDate(r *models.AnalysisRecord) string {
	if r.NextExDateEstimate == nil || r.ExDateCountdownDays == nil {
		return "unknown"
	}
	d := r.NextExDateEstimate.Format("2006-01-02")
	switch r.Urgency {
	case models.UrgencyUrgentSoon:
		return fmt.Sprintf("%s (in %dd, soon)", d, *r.ExDateCountdownDays)
	case models.UrgencyPast:
		return fmt.Sprintf("%s (passed)", d)
	}
	return fmt.Sprintf("%s (in %dd)", d, *r.ExDateCountdownDays)
}

func formatVerdict(v models.ValuationVerdict) string {
	switch v {
	case models.VerdictCheap:
		return "Cheap"
	case models.VerdictExpensive:
		return "Expensive"
	}
	return "No data"
}

func formatFlags(flags []models.RiskFlag) string {
	if len(flags) == 0 {
		return "none"
	}
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func formatMonths(months []int) string {
	if len(months) == 0 {
		return "unknown"
	}
	names := make([]string, 0, len(months))
	for _, m := range months {
		if m >= 1 && m <= 12 {
			names = append(names, monthNames[m-1])
		}
	}
	return strings.Join(names, ", ")
}

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
