package service

import (
	"time"

	"github.com/jjenkins/rtharvest/internal/model"
)

const dateLayout = "2006-01-02"

// ClassifyStatus derives an act's validity on the calendar day of today.
// Rules apply in order: a repeal date before today means EXPIRED; an entry
// into force on or before today means VALID; a later entry into force means
// PENDING_VALIDITY; anything else is UNKNOWN. Dates that are empty or not
// YYYY-MM-DD count as absent. The publication date does not affect the result.
func ClassifyStatus(publication, entryIntoForce, repeal string, today time.Time) model.Status {
	day := truncateDay(today)

	if r, ok := parseDate(repeal); ok && r.Before(day) {
		return model.StatusExpired
	}
	if e, ok := parseDate(entryIntoForce); ok {
		if !e.After(day) {
			return model.StatusValid
		}
		return model.StatusPendingValidity
	}
	return model.StatusUnknown
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// truncateDay returns midnight UTC of t's calendar date in t's location.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
