package cronexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		field    string
		min, max int
		wantErr  bool
		validate func(*testing.T, TermList)
	}{
		{
			name:  "wildcard spans the full range with step 1",
			field: "*",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 1)
				assert.Equal(t, Term{Min: 0, Max: 59, Step: 1}, tl[0])
			},
		},
		{
			name:  "single value",
			field: "5",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 1)
				assert.Equal(t, Term{Min: 5, Max: 5, Step: 1}, tl[0])
			},
		},
		{
			name:  "range",
			field: "1-5",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 1)
				assert.Equal(t, Term{Min: 1, Max: 5, Step: 1}, tl[0])
			},
		},
		{
			name:  "wildcard with step",
			field: "*/15",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 1)
				assert.Equal(t, Term{Min: 0, Max: 59, Step: 15}, tl[0])
			},
		},
		{
			name:  "point with step widens to field max",
			field: "5/5",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 1)
				assert.Equal(t, Term{Min: 5, Max: 59, Step: 5}, tl[0])
			},
		},
		{
			name:  "range with step",
			field: "1-10/2",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 1)
				assert.Equal(t, Term{Min: 1, Max: 10, Step: 2}, tl[0])
			},
		},
		{
			name:  "star dash value",
			field: "*-5",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 1)
				assert.Equal(t, Term{Min: 0, Max: 5, Step: 1}, tl[0])
			},
		},
		{
			name:  "comma separated subterms",
			field: "0,30",
			min:   0, max: 59,
			validate: func(t *testing.T, tl TermList) {
				require.Len(t, tl, 2)
				assert.Equal(t, Term{Min: 0, Max: 0, Step: 1}, tl[0])
				assert.Equal(t, Term{Min: 30, Max: 30, Step: 1}, tl[1])
			},
		},
		{name: "step cannot be zero", field: "*/0", min: 0, max: 59, wantErr: true},
		{name: "below field minimum", field: "-1", min: 0, max: 59, wantErr: true},
		{name: "above field maximum", field: "60", min: 0, max: 59, wantErr: true},
		{name: "min greater than max", field: "10-5", min: 0, max: 59, wantErr: true},
		{name: "non-numeric value", field: "abc", min: 0, max: 59, wantErr: true},
		{name: "empty step", field: "5/", min: 0, max: 59, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tl, err := ParseField(tt.field, tt.min, tt.max)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidExpression)
				return
			}
			require.NoError(t, err)
			tt.validate(t, tl)
		})
	}
}

// TestTermCharacteristicSetNonEmpty verifies that every field/range pair
// that parses produces a TermList whose characteristic set (every integer
// in range matched by some term) is nonempty.
func TestTermCharacteristicSetNonEmpty(t *testing.T) {
	t.Parallel()

	exprs := []string{"*", "5", "1-10", "*/7", "5/5", "1-20/3", "0,15,30,45"}
	for _, expr := range exprs {
		tl, err := ParseField(expr, 0, 59)
		require.NoError(t, err, expr)

		matched := false
		for v := 0; v <= 59; v++ {
			if tl.Contains(v) {
				matched = true
				break
			}
		}
		assert.True(t, matched, "expected %q to match at least one value", expr)
	}
}

func TestWildcardMatchesEveryValueInRange(t *testing.T) {
	t.Parallel()

	tl, err := ParseField("*", 0, 59)
	require.NoError(t, err)
	for v := 0; v <= 59; v++ {
		assert.True(t, tl.Contains(v), "wildcard should match %d", v)
	}
}

func TestStepMatchIsAbsoluteModulo(t *testing.T) {
	t.Parallel()

	// "1/5" matches 1, 5, 10, 15, ... (v % step == 0), not 1, 6, 11, 16
	// (offset from min). This is the quirky but spec-mandated behavior.
	tl, err := ParseField("1/5", 0, 59)
	require.NoError(t, err)

	assert.True(t, tl.Contains(1))
	assert.True(t, tl.Contains(5))
	assert.True(t, tl.Contains(10))
	assert.False(t, tl.Contains(6))
	assert.False(t, tl.Contains(11))
}
