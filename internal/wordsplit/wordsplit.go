// Package wordsplit tokenizes a tab line's command portion into argv.
// github.com/mattn/go-shellwords does the actual splitting (whitespace,
// quoting, backslash escapes); this package only adapts its parser to
// the shape crore's job and hook loaders expect and collapses its
// all-or-nothing error into one sentinel a caller can match on.
package wordsplit

import (
	"errors"
	"fmt"

	"github.com/mattn/go-shellwords"
)

// ErrUnterminatedCommand is returned when a command string ends with an
// open quote or a dangling escape character.
var ErrUnterminatedCommand = errors.New("unterminated command")

// Split tokenizes s into argv the way a POSIX-ish shell would: whitespace
// separates words, single quotes are literal, double quotes allow spaces,
// and a backslash escapes the character that follows it, including
// inside double quotes. Empty input (or input that is entirely
// whitespace) yields a nil slice and a nil error.
func Split(s string) ([]string, error) {
	words, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnterminatedCommand, err)
	}
	if len(words) == 0 {
		return nil, nil
	}
	return words, nil
}
