package cronexpr

import (
	"fmt"
	"time"
)

// Field range bounds, per the crontab grammar (day-of-week: 0 = Sunday).
const (
	MinuteMin = 0
	MinuteMax = 59
	HourMin   = 0
	HourMax   = 23
	DomMin    = 1
	DomMax    = 31
	MonthMin  = 1
	MonthMax  = 12
	DowMin    = 0
	DowMax    = 6
)

// maxDateSearchDays bounds the one place the resolver walks the calendar
// day by day (restrictive day-of-week/day-of-month combinations, or a
// day-of-month value that never occurs in an allowed month, e.g. Feb 30).
// Roughly 8 years; exceeding it means the expression can never fire.
const maxDateSearchDays = 8*366 + 10

// Fields holds the five parsed cron fields of one expression.
type Fields struct {
	Minute TermList
	Hour   TermList
	Dom    TermList
	Month  TermList
	Dow    TermList
}

// ParseFields parses the five raw crontab fields into a Fields value.
func ParseFields(minute, hour, dom, month, dow string) (Fields, error) {
	var f Fields
	var err error

	if f.Minute, err = ParseField(minute, MinuteMin, MinuteMax); err != nil {
		return Fields{}, fmt.Errorf("minute field: %w", err)
	}
	if f.Hour, err = ParseField(hour, HourMin, HourMax); err != nil {
		return Fields{}, fmt.Errorf("hour field: %w", err)
	}
	if f.Dom, err = ParseField(dom, DomMin, DomMax); err != nil {
		return Fields{}, fmt.Errorf("day-of-month field: %w", err)
	}
	if f.Month, err = ParseField(month, MonthMin, MonthMax); err != nil {
		return Fields{}, fmt.Errorf("month field: %w", err)
	}
	if f.Dow, err = ParseField(dow, DowMin, DowMax); err != nil {
		return Fields{}, fmt.Errorf("day-of-week field: %w", err)
	}
	return f, nil
}

// matchesInstant reports whether t (truncated to the minute) matches all
// five fields.
func (f Fields) matchesInstant(t time.Time) bool {
	return f.Minute.Contains(t.Minute()) &&
		f.Hour.Contains(t.Hour()) &&
		f.dateMatches(t)
}

// dateMatches reports whether t's calendar date matches the day-of-month,
// month, and day-of-week fields.
func (f Fields) dateMatches(t time.Time) bool {
	return f.Month.Contains(int(t.Month())) &&
		f.Dom.Contains(t.Day()) &&
		f.Dow.Contains(int(t.Weekday()))
}

// nextApplicable returns the smallest value w in [t.Min, t.Max] matching t
// with (w >= v if includeCurrent else w > v). If no such w exists, it
// returns t.Min, signaling to the caller (via condense) that this term
// contributes no in-range candidate this round.
func nextApplicable(t Term, v int, includeCurrent bool) int {
	lo := v
	if !includeCurrent {
		lo++
	}
	if lo < t.Min {
		lo = t.Min
	}
	for w := lo; w <= t.Max; w++ {
		if t.Matches(w) {
			return w
		}
	}
	return t.Min
}

// condense picks, across every term in terms, the least value >= v (after
// advancing v when includeCurrent is false). If the field has no matching
// value at or after v, it wraps: the return value is the minimum Min
// across all terms and wrapped is true.
func condense(terms TermList, globalMin, globalMax, v int, includeCurrent bool) (int, bool) {
	if !includeCurrent {
		v++
		if v > globalMax {
			return terms.min(), true
		}
	}

	best := 0
	found := false
	for _, t := range terms {
		cand := nextApplicable(t, v, true)
		if cand < v {
			continue
		}
		if !found || cand < best {
			best = cand
			found = true
		}
	}
	if !found {
		return terms.min(), true
	}
	return best, false
}

// nextDate returns the earliest calendar date matching the day-of-month,
// month, and day-of-week fields: >= from's date if includeFrom, else
// strictly after it. The fast path uses condense on month/day-of-month;
// the bounded day-by-day walk (capped at maxDateSearchDays) is the one
// place the resolver iterates, needed for restrictive day-of-week
// combinations and for day-of-month values that don't exist in every
// allowed month (e.g. requesting day 30 with month restricted to
// February).
func nextDate(f Fields, from time.Time, includeFrom bool) (time.Time, error) {
	seed := from
	if !includeFrom {
		seed = seed.AddDate(0, 0, 1)
	}
	seed = time.Date(seed.Year(), seed.Month(), seed.Day(), 0, 0, 0, 0, time.UTC)

	candDay, dayWrapped := condense(f.Dom, DomMin, DomMax, seed.Day(), true)
	candMonth, monthWrapped := condense(f.Month, MonthMin, MonthMax, int(seed.Month()), !dayWrapped)
	if !monthWrapped && candMonth != int(seed.Month()) {
		// A later month starts over from its first matching day.
		candDay, _ = condense(f.Dom, DomMin, DomMax, DomMin, true)
	}

	candidate := time.Date(seed.Year(), time.Month(candMonth), candDay, 0, 0, 0, 0, time.UTC)
	if monthWrapped || candidate.YearDay() < seed.YearDay() {
		year := seed.Year() + 1
		m, _ := condense(f.Month, MonthMin, MonthMax, MonthMin, true)
		d, _ := condense(f.Dom, DomMin, DomMax, DomMin, true)
		candidate = time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}

	for i := 0; i < maxDateSearchDays; i++ {
		if f.dateMatches(candidate) {
			return candidate, nil
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return time.Time{}, fmt.Errorf("%w: no matching calendar date within %d days", ErrInvalidExpression, maxDateSearchDays)
}

// Next returns the next UTC instant, strictly after now (or equal to now
// if now's seconds are zero and the current minute already matches), at
// which all five fields match.
func (f Fields) Next(now time.Time) (time.Time, error) {
	now = now.UTC()

	if now.Second() == 0 && now.Nanosecond() == 0 && f.matchesInstant(now) {
		return now, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	date, err := nextDate(f, now, true)
	if err != nil {
		return time.Time{}, err
	}

	var hour, minute int
	if date.Equal(today) {
		candMin, minWrapped := condense(f.Minute, MinuteMin, MinuteMax, now.Minute(), false)
		candHour, hourWrapped := condense(f.Hour, HourMin, HourMax, now.Hour(), !minWrapped)
		if hourWrapped {
			date, err = nextDate(f, today, false)
			if err != nil {
				return time.Time{}, err
			}
			candMin, _ = condense(f.Minute, MinuteMin, MinuteMax, MinuteMin, true)
			candHour, _ = condense(f.Hour, HourMin, HourMax, HourMin, true)
		} else if candHour != now.Hour() {
			// A later hour starts over from its first matching minute.
			candMin, _ = condense(f.Minute, MinuteMin, MinuteMax, MinuteMin, true)
		}
		minute, hour = candMin, candHour
	} else {
		minute, _ = condense(f.Minute, MinuteMin, MinuteMax, MinuteMin, true)
		hour, _ = condense(f.Hour, HourMin, HourMax, HourMin, true)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC), nil
}
