// Package crond implements the steady-state scheduling loop: select the
// earliest due job, sleep, dispatch every job whose time has come, run
// hooks around each, reschedule, and repeat forever. This is the single
// locus of control in crore; it never returns.
package crond

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aetxyz/crore/internal/cronjob"
	"github.com/aetxyz/crore/internal/logging"
	"github.com/aetxyz/crore/internal/procexec"
)

// Hooks are the before/after argv sequences run around every job
// dispatch, when non-empty.
type Hooks struct {
	Before []string
	After  []string
}

// Loop owns the job set for the process lifetime. Jobs are mutated only
// from within Run, never concurrently. runtime tracks last-run bookkeeping
// for Snapshot, guarded by mu since a status server may read it from a
// separate goroutine while the loop is writing.
type Loop struct {
	Jobs   []*cronjob.Job
	Envs   []procexec.Env
	Hooks  Hooks
	Legacy bool
	Log    *logging.Logger

	mu      sync.RWMutex
	runtime []jobRuntime

	// now and sleep are overridable for tests; they default to the real
	// wall clock.
	now   func() time.Time
	sleep func(time.Duration)
}

type jobRuntime struct {
	lastRun    time.Time
	lastResult string
}

// JobSnapshot is a read-only view of one job's schedule and last-seen
// result, safe to hand to a concurrent reader.
type JobSnapshot struct {
	Schedule   string
	Command    string
	NextRun    time.Time
	LastRun    time.Time
	LastResult string
}

// New builds a Loop ready to run over jobs.
func New(jobs []*cronjob.Job, envs []procexec.Env, hooks Hooks, legacy bool, log *logging.Logger) *Loop {
	return &Loop{
		Jobs:    jobs,
		Envs:    envs,
		Hooks:   hooks,
		Legacy:  legacy,
		Log:     log,
		runtime: make([]jobRuntime, len(jobs)),
		now:     func() time.Time { return time.Now().UTC() },
		sleep:   time.Sleep,
	}
}

// Snapshot returns the current state of every job, for a read-only status
// surface. It takes a read lock; it never blocks on process execution.
func (l *Loop) Snapshot() []JobSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]JobSnapshot, len(l.Jobs))
	for i, job := range l.Jobs {
		out[i] = JobSnapshot{
			Schedule:   strings.Join(job.Expression.Raw[:], " "),
			Command:    job.String(),
			NextRun:    job.NextRun,
			LastRun:    l.runtime[i].lastRun,
			LastResult: l.runtime[i].lastResult,
		}
	}
	return out
}

// Run executes the steady-state loop. It never returns under normal
// operation.
func (l *Loop) Run(ctx context.Context) {
	for {
		l.tick(ctx)
	}
}

// tick performs exactly one select/sleep/dispatch/reschedule cycle; split
// out from Run so tests can drive a bounded number of iterations.
func (l *Loop) tick(ctx context.Context) {
	now := l.now()

	earliest, coincident := l.selectEarliest()
	if earliest == nil {
		return
	}

	delta := earliest.NextRun.Sub(now)
	if delta > 0 {
		l.Log.Sleeping(delta.Seconds(), earliest.String(), coincident)
		l.sleep(delta)
	}

	now = l.now()
	l.Log.Awake(earliest.String(), coincident)

	var due []int
	for i, job := range l.Jobs {
		if job.NextRun.After(now) {
			continue
		}
		result := l.dispatch(ctx, job)
		due = append(due, i)

		ranAt := l.now()
		l.mu.Lock()
		l.runtime[i] = jobRuntime{lastRun: ranAt, lastResult: result}
		l.mu.Unlock()
	}

	for _, i := range due {
		l.mu.Lock()
		_ = l.Jobs[i].Reschedule(l.now())
		l.mu.Unlock()
	}
}

// selectEarliest scans the job set once for the minimum NextRun, also
// counting how many jobs share that instant (for the "N coincident jobs"
// log line).
func (l *Loop) selectEarliest() (*cronjob.Job, int) {
	var earliest *cronjob.Job
	coincident := 0
	for _, job := range l.Jobs {
		switch {
		case earliest == nil || job.NextRun.Before(earliest.NextRun):
			earliest = job
			coincident = 1
		case job.NextRun.Equal(earliest.NextRun):
			coincident++
		}
	}
	return earliest, coincident
}

// dispatch runs the before hook, the job itself, and the after hook, in
// that order, logging as it goes. It never returns an error: spawn
// failures and nonzero/signaled exits are logged and the job is still
// rescheduled by the caller. The returned string summarizes the outcome
// for [STATUS]'s last-result field; nothing downstream parses it.
func (l *Loop) dispatch(ctx context.Context, job *cronjob.Job) string {
	if len(l.Hooks.Before) > 0 {
		l.runHook(ctx, "before", l.Hooks.Before, nil)
	}

	envs := [][]procexec.Env{l.Envs}
	cmdStr := job.String()

	if l.Legacy {
		result, duration, err := procexec.ExecLegacy(ctx, job.Command, envs...)
		var summary string
		switch {
		case errors.Is(err, procexec.ErrOutputNotUTF8):
			l.Log.LegacyOutput(cmdStr, result.Stdout, result.Stderr)
			summary = "output not valid utf-8"
		case err != nil:
			l.Log.SpawnError(cmdStr, err)
			summary = "spawn error: " + err.Error()
		default:
			l.Log.LegacyOutput(cmdStr, result.Stdout, result.Stderr)
			summary = "ok"
		}
		if len(l.Hooks.After) > 0 {
			resultStr := result.Stderr
			l.runHook(ctx, "after", l.Hooks.After, map[string]string{
				"CRORE_RESULT":   resultStr,
				"CRORE_DURATION": microseconds(duration),
			})
		}
		return summary
	}

	status, duration := procexec.Exec(ctx, job.Command, envs...)
	var summary string
	switch {
	case status.SpawnError():
		l.Log.SpawnError(cmdStr, status.Err)
		summary = "spawn error: " + status.Err.Error()
	case status.Signaled():
		l.Log.ChildSignaled(cmdStr, status.Signal)
		summary = "signal " + strconv.Itoa(status.Signal)
	case status.Exited() && status.Code != 0:
		l.Log.ChildNonZero(cmdStr, status.Code)
		summary = "exit " + strconv.Itoa(status.Code)
	default:
		summary = "ok"
	}

	if len(l.Hooks.After) > 0 {
		resultStr := "1"
		if status.Exited() {
			resultStr = strconv.Itoa(status.Code)
		}
		l.runHook(ctx, "after", l.Hooks.After, map[string]string{
			"CRORE_RESULT":   resultStr,
			"CRORE_DURATION": microseconds(duration),
		})
	}
	return summary
}

// runHook spawns a before/after hook. Output and status are ignored,
// per the hook contract; only the fact that it fired is logged.
func (l *Loop) runHook(ctx context.Context, kind string, argv []string, overlay map[string]string) {
	l.Log.HookFired(kind, argv)

	hookEnv := make([]procexec.Env, 0, len(l.Envs)+len(overlay)+1)
	hookEnv = append(hookEnv, l.Envs...)
	hookEnv = append(hookEnv, procexec.Env{Key: "CRORE_COMMAND", Value: strings.Join(argv, " ")})
	for k, v := range overlay {
		hookEnv = append(hookEnv, procexec.Env{Key: k, Value: v})
	}

	procexec.Exec(ctx, argv, hookEnv)
}

// microseconds renders a duration as whole microseconds, decimal, no
// leading zeros.
func microseconds(d time.Duration) string {
	return strconv.FormatInt(d.Nanoseconds()/1000, 10)
}
