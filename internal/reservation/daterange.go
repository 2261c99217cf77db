package reservation

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// DateRange is a half-open interval of calendar days [start, end). Both ends
// sit at midnight in the hotel location.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange builds a range from the calendar day of start and end. The
// year, month and day of each value are taken as given and are not shifted
// into loc first. now decides what "today" is in loc.
func NewDateRange(start, end time.Time, loc *time.Location, now time.Time) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	if start.IsZero() || end.IsZero() {
		return DateRange{}, fmt.Errorf("%w: both dates are required", ErrInvalidDateRange)
	}
	s := calendarDay(start, loc)
	e := calendarDay(end, loc)
	if !s.Before(e) {
		return DateRange{}, fmt.Errorf("%w: check-out %s must be after check-in %s", ErrInvalidDateRange, e.Format(DateLayout), s.Format(DateLayout))
	}
	today := calendarDay(now.In(loc), loc)
	if s.Before(today) {
		return DateRange{}, fmt.Errorf("%w: check-in %s is in the past", ErrInvalidDateRange, s.Format(DateLayout))
	}
	return DateRange{start: s, end: e}, nil
}

// ParseDateRange parses two YYYY-MM-DD strings as calendar dates in loc.
func ParseDateRange(startStr, endStr string, loc *time.Location, now time.Time) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation(DateLayout, strings.TrimSpace(startStr), loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: check-in %q is not a YYYY-MM-DD date", ErrInvalidDateRange, startStr)
	}
	end, err := time.ParseInLocation(DateLayout, strings.TrimSpace(endStr), loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: check-out %q is not a YYYY-MM-DD date", ErrInvalidDateRange, endStr)
	}
	return NewDateRange(start, end, loc, now)
}

// storedRange rebuilds a range read back from storage without the
// not-in-the-past rule.
func storedRange(start, end time.Time, loc *time.Location) DateRange {
	return DateRange{start: calendarDay(start, loc), end: calendarDay(end, loc)}
}

// Start returns the check-in day.
func (r DateRange) Start() time.Time { return r.start }

// End returns the check-out day.
func (r DateRange) End() time.Time { return r.end }

// IsZero reports whether the range was never built.
func (r DateRange) IsZero() bool { return r.start.IsZero() && r.end.IsZero() }

// NightCount returns the number of nights between start and end.
func (r DateRange) NightCount() int {
	return daysBetween(r.start, r.end)
}

// Overlaps reports whether the two ranges share at least one night.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.start.Before(other.end) && r.end.After(other.start)
}

// Contains reports whether the calendar day of d falls in [start, end).
func (r DateRange) Contains(d time.Time) bool {
	day := calendarDay(d, r.start.Location())
	return !day.Before(r.start) && day.Before(r.end)
}

func (r DateRange) String() string {
	return r.start.Format(DateLayout) + "/" + r.end.Format(DateLayout)
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts civil days, so 23h and 25h DST days still count as one.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
