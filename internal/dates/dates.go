// internal/dates/dates.go
package dates

import (
	"math"
	"time"
)

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of whole calendar days from a to b in
// loc. Negative when b is before a. Hours within a day never matter:
// 23:59 and 00:01 of the same day are zero days apart.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	am := Midnight(a, loc)
	bm := Midnight(b, loc)
	// Round, don't truncate: a DST transition makes one day 23 or 25 hours.
	return int(math.Round(bm.Sub(am).Hours() / 24))
}

// Deadline computes anchor + offset calendar days, normalized to
// midnight in loc.
func Deadline(anchor time.Time, offsetDays int, loc *time.Location) time.Time {
	return Midnight(anchor, loc).AddDate(0, 0, offsetDays)
}

// MatchesTrigger reports whether an event dated eventDate crosses a
// template's trigger threshold today. A template with offset O fires when
// eventDate == today - O, so a negative offset fires O days before the
// event.
func MatchesTrigger(eventDate, today time.Time, offsetDays int, loc *time.Location) bool {
	return DaysBetween(today, eventDate, loc) == -offsetDays
}
