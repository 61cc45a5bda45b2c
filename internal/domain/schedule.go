package domain

import "time"

// NextTrigger returns the first instant strictly after now at which the wall
// clock in loc reads at and the weekday is in days. The result is in UTC.
// It returns the zero time when days is empty.
func NextTrigger(now time.Time, at Clock, days WeekdaySet, loc *time.Location) time.Time {
	if days == 0 {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	// 8 candidates cover a full week plus today.
	for i := 0; i <= 7; i++ {
		d := local.AddDate(0, 0, i)
		cand := time.Date(d.Year(), d.Month(), d.Day(), at.Hour(), at.Minute(), 0, 0, loc)
		if !cand.After(now) {
			continue
		}
		if !days.Has(cand.Weekday()) {
			continue
		}
		return cand.UTC()
	}
	return time.Time{}
}
