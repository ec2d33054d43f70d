// Package cronjob holds one parsed line of the crore tab: the cron
// expression, the tokenized command, and the memoized next-run instant.
package cronjob

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aetxyz/crore/internal/cronexpr"
)

// ErrBadCommand is returned when a tab line does not have five schedule
// fields followed by a command, or when the command portion fails to
// tokenize.
var ErrBadCommand = errors.New("bad command")

// WordSplitter tokenizes a shell command string into argv. It is supplied
// by the caller (internal/wordsplit in this repo) so that Job stays
// independent of any one splitting policy.
type WordSplitter func(string) ([]string, error)

var fieldSplitter = regexp.MustCompile(`\s+`)

// Expression retains the parsed terms plus the original five field
// strings, kept only for display (e.g. a status endpoint).
type Expression struct {
	Fields cronexpr.Fields
	Raw    [5]string
}

// Job is one line of the tab: an immutable expression and command, plus a
// next-run instant that the scheduling loop rewrites after construction
// and after every execution.
type Job struct {
	Expression Expression
	Command    []string
	NextRun    time.Time
}

// New parses one non-empty, non-comment tab line into a Job and computes
// its initial NextRun from now. The line must have five schedule fields
// followed by a command; split tokenizes the command portion.
func New(line string, now time.Time, split WordSplitter) (*Job, error) {
	parts := fieldSplitter.Split(strings.TrimSpace(line), 6)
	if len(parts) < 6 {
		return nil, fmt.Errorf("%w: expected 5 schedule fields and a command, got %d field(s)", ErrBadCommand, len(parts))
	}

	command, err := split(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCommand, err)
	}
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrBadCommand)
	}

	fields, err := cronexpr.ParseFields(parts[0], parts[1], parts[2], parts[3], parts[4])
	if err != nil {
		return nil, err
	}

	nextRun, err := fields.Next(now)
	if err != nil {
		return nil, err
	}

	return &Job{
		Expression: Expression{
			Fields: fields,
			Raw:    [5]string{parts[0], parts[1], parts[2], parts[3], parts[4]},
		},
		Command: command,
		NextRun: nextRun,
	}, nil
}

// Reschedule recomputes NextRun from now. It never fails for an
// expression that parsed successfully at construction.
func (j *Job) Reschedule(now time.Time) error {
	next, err := j.Expression.Fields.Next(now)
	if err != nil {
		return err
	}
	j.NextRun = next
	return nil
}

// String renders the command as a single display string, e.g. for logs.
func (j *Job) String() string {
	return strings.Join(j.Command, " ")
}
