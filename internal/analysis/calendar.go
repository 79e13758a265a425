package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/bobmcallan/divvy/internal/models"
)

// DefaultLookbackDays is the trailing window the dividend months are taken from
const DefaultLookbackDays = 366

// Gap bounds in days between the two most recent payments, inclusive
const (
	quarterlyMinGap  = 60
	quarterlyMaxGap  = 110
	semiAnnualMinGap = 150
	semiAnnualMaxGap = 210
	annualMinGap     = 330
	annualMaxGap     = 400
)

// ExtractCalendar returns the distinct calendar months (1-12, ascending) with
// an ex-dividend date in the lookback window ending at now, and the payment
// frequency inferred from the gap between the two most recent events.
func ExtractCalendar(events []models.DividendEvent, now time.Time, lookbackDays int) ([]int, models.PaymentFrequency) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	sorted := append([]models.DividendEvent(nil), events...)
	models.SortDividendEvents(sorted)

	start := now.AddDate(0, 0, -lookbackDays)
	seen := make(map[int]bool, 12)
	months := make([]int, 0, 12)
	for _, ev := range sorted {
		if ev.ExDate.Before(start) || ev.ExDate.After(now) {
			continue
		}
		m := int(ev.ExDate.Month())
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	sort.Ints(months)

	if len(sorted) < 2 {
		return months, models.FrequencyUnknown
	}
	last, prev := sorted[len(sorted)-1], sorted[len(sorted)-2]
	return months, ClassifyFrequency(daysBetween(prev.ExDate, last.ExDate))
}

// ClassifyFrequency maps a gap in days between payments to a cadence
func ClassifyFrequency(gapDays int) models.PaymentFrequency {
	switch {
	case gapDays >= quarterlyMinGap && gapDays <= quarterlyMaxGap:
		return models.FrequencyQuarterly
	case gapDays >= semiAnnualMinGap && gapDays <= semiAnnualMaxGap:
		return models.FrequencySemiAnnual
	case gapDays >= annualMinGap && gapDays <= annualMaxGap:
		return models.FrequencyAnnual
	default:
		return models.FrequencyIrregular
	}
}

// daysBetween counts calendar days from a to b, ignoring time of day
func daysBetween(a, b time.Time) int {
	return int(math.Round(dateOf(b).Sub(dateOf(a)).Hours() / 24))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
