package wordsplit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "simple whitespace", in: "echo hello world", want: []string{"echo", "hello", "world"}},
		{name: "extra whitespace collapses", in: "  echo   hi  ", want: []string{"echo", "hi"}},
		{name: "single quotes are literal", in: `echo 'a  b' c`, want: []string{"echo", "a  b", "c"}},
		{name: "double quotes allow spaces", in: `echo "hello world"`, want: []string{"echo", "hello world"}},
		{name: "double quote escapes", in: `echo "a\"b"`, want: []string{"echo", `a"b`}},
		{name: "unquoted backslash escapes next char", in: `echo a\ b`, want: []string{"echo", "a b"}},
		{name: "empty string", in: "", want: nil},
		{name: "whitespace only", in: "   ", want: nil},
		{name: "adjacent quoted segments join one word", in: `echo 'foo'"bar"`, want: []string{"echo", "foobar"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Split(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitUnterminatedSingleQuote(t *testing.T) {
	t.Parallel()
	_, err := Split("echo 'oops")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnterminatedCommand)
}

func TestSplitUnterminatedDoubleQuote(t *testing.T) {
	t.Parallel()
	_, err := Split(`echo "oops`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnterminatedCommand)
}

func TestSplitTrailingBackslash(t *testing.T) {
	t.Parallel()
	_, err := Split(`echo oops\`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnterminatedCommand)
}
