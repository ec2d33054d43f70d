package cronexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFields(t *testing.T, minute, hour, dom, month, dow string) Fields {
	t.Helper()
	f, err := ParseFields(minute, hour, dom, month, dow)
	require.NoError(t, err)
	return f
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestNextFireScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                       string
		minute, hour, dom, month, dow string
		now                        string
		want                       string
	}{
		{
			name: "every minute after the second boundary",
			minute: "*", hour: "*", dom: "*", month: "*", dow: "*",
			now:  "2025-06-01T12:00:30Z",
			want: "2025-06-01T12:01:00Z",
		},
		{
			name: "step minutes wraps forward to next multiple",
			minute: "*/5", hour: "*", dom: "*", month: "*", dow: "*",
			now:  "2025-06-01T12:02:00Z",
			want: "2025-06-01T12:05:00Z",
		},
		{
			name: "yearly job rolls the year forward",
			minute: "0", hour: "0", dom: "1", month: "1", dow: "*",
			now:  "2025-06-01T00:00:00Z",
			want: "2026-01-01T00:00:00Z",
		},
		{
			name: "restricted weekday matches later the same day",
			minute: "30", hour: "2", dom: "*", month: "*", dow: "0",
			now:  "2025-06-01T00:00:00Z", // Sunday, Jun 1 2025
			want: "2025-06-01T02:30:00Z",
		},
		{
			name: "leap-day-only schedule skips non-leap years",
			minute: "0", hour: "0", dom: "29", month: "2", dow: "*",
			now:  "2025-01-01T00:00:00Z",
			want: "2028-02-29T00:00:00Z",
		},
		{
			name: "dom field that only exists far ahead of the current month",
			minute: "0", hour: "0", dom: "5", month: "*", dow: "*",
			now:  "2025-06-15T00:00:00Z",
			want: "2025-07-05T00:00:00Z",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := mustFields(t, tt.minute, tt.hour, tt.dom, tt.month, tt.dow)
			got, err := f.Next(utc(tt.now))
			require.NoError(t, err)
			assert.Equal(t, utc(tt.want), got)
		})
	}
}

func TestResolverForwardProgress(t *testing.T) {
	t.Parallel()

	exprs := [][5]string{
		{"*", "*", "*", "*", "*"},
		{"*/5", "*", "*", "*", "*"},
		{"0", "0", "1", "1", "*"},
		{"30", "2", "*", "*", "0"},
		{"0", "0", "29", "2", "*"},
	}

	start := utc("2025-03-14T09:26:53Z")
	for _, e := range exprs {
		f := mustFields(t, e[0], e[1], e[2], e[3], e[4])
		next, err := f.Next(start)
		require.NoError(t, err)
		assert.True(t, next.After(start), "next fire must be strictly after now")

		// Mirror reschedule(): it is always invoked from the real wall
		// clock some time after the job fired, never at the exact
		// zero-second instant the previous next_run computed (which
		// would otherwise re-match immediately per the resolver's
		// "equal if the current minute still matches" rule).
		again, err := f.Next(next.Add(time.Second))
		require.NoError(t, err)
		assert.True(t, again.After(next), "resolving from just after a firing instant must advance strictly further")
	}
}

func TestResolverMonotonicity(t *testing.T) {
	t.Parallel()

	f := mustFields(t, "*/7", "*", "*", "*", "*")
	t1 := utc("2025-06-01T12:03:00Z")
	n1, err := f.Next(t1)
	require.NoError(t, err)

	// Any t2 in (t1, n1] must resolve to the same next fire as t1.
	for _, t2 := range []time.Time{t1.Add(30 * time.Second), t1.Add(time.Minute), n1} {
		n2, err := f.Next(t2)
		require.NoError(t, err)
		assert.Equal(t, n1, n2, "next_fire should be stable across %s", t2)
	}
}

func TestFieldIndependence(t *testing.T) {
	t.Parallel()

	base := mustFields(t, "0", "12", "*", "*", "*")
	now := utc("2025-06-01T00:00:00Z")
	baseNext, err := base.Next(now)
	require.NoError(t, err)

	// Restricting a field that base didn't rely on to match still includes
	// the base's resolved weekday/month/day; changing it independently
	// should not perturb the other fields' resolution.
	withMonth := mustFields(t, "0", "12", "*", "*/1", "*")
	withMonthNext, err := withMonth.Next(now)
	require.NoError(t, err)
	assert.Equal(t, baseNext, withMonthNext)
}

func TestInvalidExpressionRejectsBadFields(t *testing.T) {
	t.Parallel()

	_, err := ParseFields("60", "0", "1", "1", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestNextDateCapsPathologicalWeekday(t *testing.T) {
	t.Parallel()

	// Feb 30th on a Monday never exists; the bounded search must fail
	// rather than loop forever.
	f := mustFields(t, "0", "0", "30", "2", "1")
	_, err := f.Next(utc("2025-01-01T00:00:00Z"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestExactCurrentMinuteMatch(t *testing.T) {
	t.Parallel()

	f := mustFields(t, "0", "12", "*", "*", "*")
	now := utc("2025-06-01T12:00:00Z")
	got, err := f.Next(now)
	require.NoError(t, err)
	assert.Equal(t, now, got)
}
