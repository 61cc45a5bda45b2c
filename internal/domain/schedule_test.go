package domain

import (
	"testing"
	"time"
)

// helper: build a time in given tz and return its UTC
func mustLocalUTC(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc).UTC()
}

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("parse clock %q: %v", s, err)
	}
	return c
}

func TestNextTrigger_LaterToday(t *testing.T) {
	// 2025-05-05 is a Monday.
	now := mustLocalUTC(t, "UTC", 2025, time.May, 5, 9, 30)
	next := NextTrigger(now, mustClock(t, "14:00"), Workdays, time.UTC)
	want := mustLocalUTC(t, "UTC", 2025, time.May, 5, 14, 0)
	if !next.Equal(want) {
		t.Fatalf("want %s, got %s", want, next)
	}
}

func TestNextTrigger_ExactInstantMovesToNextDay(t *testing.T) {
	now := mustLocalUTC(t, "UTC", 2025, time.May, 5, 14, 0)
	next := NextTrigger(now, mustClock(t, "14:00"), Workdays, time.UTC)
	want := mustLocalUTC(t, "UTC", 2025, time.May, 6, 14, 0)
	if !next.Equal(want) {
		t.Fatalf("want %s, got %s", want, next)
	}
}

func TestNextTrigger_SkipsWeekend(t *testing.T) {
	// Friday evening after the trigger → Monday.
	now := mustLocalUTC(t, "UTC", 2025, time.May, 9, 22, 0)
	next := NextTrigger(now, mustClock(t, "21:00"), Workdays, time.UTC)
	want := mustLocalUTC(t, "UTC", 2025, time.May, 12, 21, 0)
	if !next.Equal(want) {
		t.Fatalf("want %s, got %s", want, next)
	}
	if next.Weekday() != time.Monday {
		t.Fatalf("want Monday, got %s", next.Weekday())
	}
}

func TestNextTrigger_RespectsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	// 10:00 UTC is 13:00 MSK, trigger at 14:00 MSK = 11:00 UTC.
	now := mustLocalUTC(t, "UTC", 2025, time.May, 6, 10, 0)
	next := NextTrigger(now, mustClock(t, "14:00"), Workdays, loc)
	want := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 6, 14, 0)
	if !next.Equal(want) {
		t.Fatalf("want %s, got %s", want, next)
	}
}

func TestNextTrigger_EmptySet(t *testing.T) {
	if got := NextTrigger(time.Now(), 0, 0, time.UTC); !got.IsZero() {
		t.Fatalf("want zero time, got %s", got)
	}
}

func TestParseClock(t *testing.T) {
	c := mustClock(t, " 09:05 ")
	if c.Hour() != 9 || c.Minute() != 5 || c.String() != "09:05" {
		t.Fatalf("unexpected clock %d (%s)", c, c)
	}
	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("want error for %q", bad)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	set, err := ParseWeekdays("mon,tue,wed,thu,fri")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if set != Workdays {
		t.Fatalf("want workdays, got %s", set)
	}

	set, err = ParseWeekdays("Mon-Fri")
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if set != Workdays {
		t.Fatalf("range: want workdays, got %s", set)
	}

	set, err = ParseWeekdays("sat-mon")
	if err != nil {
		t.Fatalf("parse wrap range: %v", err)
	}
	if set.String() != "mon,sat,sun" {
		t.Fatalf("wrap range: got %s", set)
	}

	if _, err := ParseWeekdays("mon,funday"); err == nil {
		t.Fatal("want error for unknown day")
	}
	if _, err := ParseWeekdays(" , "); err == nil {
		t.Fatal("want error for empty set")
	}
}
