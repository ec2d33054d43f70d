// Package logging is crore's log sink: one verbosity gate with three
// levels, writing plain-text lines prefixed with "crore:" to a single
// stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Verbosity controls how much detail the sink emits. The zero value is
// Normal, the most verbose level.
type Verbosity int

const (
	Normal Verbosity = iota
	Private
	Silent
)

// Logger writes crore's log lines, gated by Verbosity.
type Logger struct {
	mu     sync.Mutex
	output io.Writer
	level  Verbosity
}

// New creates a Logger writing to output at the given verbosity. A nil
// output defaults to os.Stderr.
func New(output io.Writer, level Verbosity) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{output: output, level: level}
}

func (l *Logger) write(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.output, "crore: %s\n", line)
}

// EnvRegistered logs an env var applied to children at startup.
func (l *Logger) EnvRegistered(key, value string) {
	switch l.level {
	case Silent:
		return
	case Private:
		l.write(fmt.Sprintf("env: %s={redacted}", key))
	default:
		l.write(fmt.Sprintf("env: %s=%s", key, value))
	}
}

// HookRegistered logs a before/after hook discovered at startup. kind is
// "before" or "after".
func (l *Logger) HookRegistered(kind string, argv []string) {
	switch l.level {
	case Silent:
		return
	case Private:
		l.write(fmt.Sprintf("registered %s-hook", kind))
	default:
		l.write(fmt.Sprintf("registered %s-hook: %s", kind, strings.Join(argv, " ")))
	}
}

// Sleeping logs the loop entering its sleep. cmd is the display string of
// the single earliest job; when coincident > 1, cmd is ignored and the
// count is reported instead, per the "N coincident jobs" rule.
func (l *Logger) Sleeping(seconds float64, cmd string, coincident int) {
	switch l.level {
	case Silent:
		return
	case Private:
		l.write(fmt.Sprintf("sleeping %gs", seconds))
	default:
		if coincident > 1 {
			l.write(fmt.Sprintf("sleeping %gs until: %d coincident jobs", seconds, coincident))
		} else {
			l.write(fmt.Sprintf("sleeping %gs until: %s", seconds, cmd))
		}
	}
}

// Awake logs the loop waking for a dispatch tick. Same cmd/coincident
// convention as Sleeping.
func (l *Logger) Awake(cmd string, coincident int) {
	switch l.level {
	case Silent:
		return
	case Private:
		l.write("awake")
	default:
		if coincident > 1 {
			l.write(fmt.Sprintf("awake for: %d coincident jobs", coincident))
		} else {
			l.write(fmt.Sprintf("awake for: %s", cmd))
		}
	}
}

// HookFired logs a hook child actually being spawned. Unlike
// HookRegistered, the argv is never echoed here, even at Normal.
func (l *Logger) HookFired(kind string, argv []string) {
	switch l.level {
	case Silent:
		return
	default:
		l.write(fmt.Sprintf("%s-hook", kind))
	}
}

// SpawnError logs a child that could not be started at all.
func (l *Logger) SpawnError(cmd string, err error) {
	switch l.level {
	case Silent:
		return
	case Private:
		l.write(fmt.Sprintf("cronjob failed to spawn: %v", err))
	default:
		l.write(fmt.Sprintf("cronjob failed to spawn (%s): %v", cmd, err))
	}
}

// ChildNonZero logs a job child that exited with a nonzero status. The
// command is shown at both Private and Normal; only Silent suppresses it.
func (l *Logger) ChildNonZero(cmd string, code int) {
	switch l.level {
	case Silent:
		return
	default:
		l.write(fmt.Sprintf("cronjob exited status %d (%s)", code, cmd))
	}
}

// ChildSignaled logs a job child terminated by a signal. Same
// Private/Normal treatment as ChildNonZero.
func (l *Logger) ChildSignaled(cmd string, signo int) {
	switch l.level {
	case Silent:
		return
	default:
		l.write(fmt.Sprintf("cronjob exited from signal %d (%s)", signo, cmd))
	}
}

// LegacyOutput logs non-empty stdout/stderr captured in legacy mode. A
// no-op when both streams are empty.
func (l *Logger) LegacyOutput(cmd, stdout, stderr string) {
	if stdout == "" && stderr == "" {
		return
	}
	switch l.level {
	case Silent:
		return
	case Private:
		l.write("got non-empty output (check logs)")
	default:
		l.write(fmt.Sprintf("got non-empty output from `%s`:", cmd))
		l.mu.Lock()
		io.WriteString(l.output, stdout)
		io.WriteString(l.output, stderr)
		l.mu.Unlock()
	}
}
