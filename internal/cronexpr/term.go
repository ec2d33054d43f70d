// Package cronexpr parses 5-field cron expressions into Term sets and
// resolves the next UTC firing instant for a parsed expression without
// scanning forward minute by minute.
package cronexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidExpression is returned (wrapped with detail) whenever a cron
// field fails the grammar or range checks, or the resolver cannot produce
// a valid calendar instant from an otherwise well-formed expression.
var ErrInvalidExpression = errors.New("invalid cron expression")

// Term is a simple arithmetic schedule fragment within a fixed field range.
// A value v matches iff min <= v <= max and (v == min or v % step == 0).
// The modulo check is against the absolute value, not an offset from min.
type Term struct {
	Min  int
	Max  int
	Step int
}

// Matches reports whether v falls within the term's range and step.
func (t Term) Matches(v int) bool {
	if v < t.Min || v > t.Max {
		return false
	}
	return v == t.Min || v%t.Step == 0
}

// TermList is an ordered sequence of Terms produced by splitting a single
// cron field on commas.
type TermList []Term

// Contains reports whether any term in the list matches v.
func (tl TermList) Contains(v int) bool {
	for _, t := range tl {
		if t.Matches(v) {
			return true
		}
	}
	return false
}

// min returns the smallest Min across all terms in the list.
func (tl TermList) min() int {
	m := tl[0].Min
	for _, t := range tl[1:] {
		if t.Min < m {
			m = t.Min
		}
	}
	return m
}

// ParseField parses one cron field (comma-separated subterms) into a
// TermList bounded by [fieldMin, fieldMax].
func ParseField(raw string, fieldMin, fieldMax int) (TermList, error) {
	var terms TermList
	for _, sub := range strings.Split(raw, ",") {
		t, err := parseSubterm(sub, fieldMin, fieldMax)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: empty field %q", ErrInvalidExpression, raw)
	}
	return terms, nil
}

// parseSubterm parses one comma-delimited piece of a field:
// "*" | value | value-value | *-value | value/step | */step | value-value/step
func parseSubterm(sub string, fieldMin, fieldMax int) (Term, error) {
	if sub == "*" {
		return Term{Min: fieldMin, Max: fieldMax, Step: 1}, nil
	}

	rangePart := sub
	stepPart := ""
	hasStep := false
	if idx := strings.IndexByte(sub, '/'); idx >= 0 {
		rangePart = sub[:idx]
		stepPart = sub[idx+1:]
		hasStep = true
	}

	loStr := rangePart
	hiStr := ""
	hasHi := false
	if idx := strings.IndexByte(rangePart, '-'); idx >= 0 {
		loStr = rangePart[:idx]
		hiStr = rangePart[idx+1:]
		hasHi = true
	}

	var min, max int
	if loStr == "*" {
		min, max = fieldMin, fieldMax
	} else {
		lo, err := strconv.Atoi(loStr)
		if err != nil {
			return Term{}, fmt.Errorf("%w: invalid value %q in %q", ErrInvalidExpression, loStr, sub)
		}
		min, max = lo, lo
	}

	if hasHi {
		hi, err := strconv.Atoi(hiStr)
		if err != nil {
			return Term{}, fmt.Errorf("%w: invalid value %q in %q", ErrInvalidExpression, hiStr, sub)
		}
		max = hi
	}

	step := 1
	if hasStep {
		if stepPart == "" {
			return Term{}, fmt.Errorf("%w: missing step in %q", ErrInvalidExpression, sub)
		}
		s, err := strconv.Atoi(stepPart)
		if err != nil {
			return Term{}, fmt.Errorf("%w: invalid step %q in %q", ErrInvalidExpression, stepPart, sub)
		}
		step = s
		// A step on a single point ("5/5") means "from 5, every 5, up to
		// the field max" rather than the single point itself.
		if max == min {
			max = fieldMax
		}
	}

	switch {
	case step == 0:
		return Term{}, fmt.Errorf("%w: step cannot be zero in %q", ErrInvalidExpression, sub)
	case min < fieldMin:
		return Term{}, fmt.Errorf("%w: %q below field minimum %d", ErrInvalidExpression, sub, fieldMin)
	case max > fieldMax:
		return Term{}, fmt.Errorf("%w: %q above field maximum %d", ErrInvalidExpression, sub, fieldMax)
	case min > max:
		return Term{}, fmt.Errorf("%w: %q has min > max", ErrInvalidExpression, sub)
	}

	return Term{Min: min, Max: max, Step: step}, nil
}
