package analysis

import (
	"time"

	"github.com/bobmcallan/divvy/internal/models"
)

// DefaultUrgentWindowDays is how close an ex-date must be to count as urgent
const DefaultUrgentWindowDays = 21

const (
	// anchorMinAgeDays picks the event from roughly one cycle ago
	anchorMinAgeDays = 350
	cycleDays        = 365
)

// ExDateForecast is the estimated next ex-dividend date
type ExDateForecast struct {
	Estimate      *time.Time
	CountdownDays *int
	Urgency       models.Urgency
}

// PredictExDate estimates the next ex-date assuming the company repeats
// last year's calendar: the most recent event at least 350 days old is
// rolled forward 365 days. With no event that old, the latest event is
// rolled forward instead. The assumption is annual even for quarterly
// payers, so the estimate tracks the same payment one year on.
func PredictExDate(events []models.DividendEvent, today time.Time, urgentWindowDays int) ExDateForecast {
	if urgentWindowDays < 0 {
		urgentWindowDays = DefaultUrgentWindowDays
	}
	if len(events) == 0 {
		return ExDateForecast{Urgency: models.UrgencyUnknown}
	}

	day := dateOf(today)
	cutoff := day.AddDate(0, 0, -anchorMinAgeDays)

	var anchor, latest time.Time
	for _, ev := range events {
		d := dateOf(ev.ExDate)
		if d.After(latest) {
			latest = d
		}
		if !d.After(cutoff) && d.After(anchor) {
			anchor = d
		}
	}
	if anchor.IsZero() {
		anchor = latest
	}

	estimate := anchor.AddDate(0, 0, cycleDays)
	countdown := daysBetween(day, estimate)

	return ExDateForecast{
		Estimate:      &estimate,
		CountdownDays: &countdown,
		Urgency:       ClassifyUrgency(countdown, urgentWindowDays),
	}
}

// ClassifyUrgency buckets a countdown in days
func ClassifyUrgency(countdown, urgentWindowDays int) models.Urgency {
	switch {
	case countdown < 0:
		return models.UrgencyPast
	case countdown <= urgentWindowDays:
		return models.UrgencyUrgentSoon
	default:
		return models.UrgencyNormal
	}
}
