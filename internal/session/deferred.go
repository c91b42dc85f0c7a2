// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"shellstrap/internal/testutil"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

// ErrAlreadyScheduled is returned when Schedule is called twice:
// exactly one deferred block is supported per startup.
var ErrAlreadyScheduled = errors.New("deferred block already scheduled")

type (
	// Deferred schedules the startup block on a background execution
	// context and merges its results into the primary session. It is
	// fire-and-forget: callers need not retain the returned Handle.
	Deferred struct {
		session   *Session
		logger    *log.Logger
		clock     testutil.Clock
		scheduled atomic.Bool
	}

	// Handle lets interested callers (mostly tests) observe completion
	// of the background work. Err is valid once Done is closed.
	Handle struct {
		done chan struct{}
		err  error
	}
)

// NewDeferred creates a deferred initializer bound to the primary
// session. A nil logger discards diagnostics.
func NewDeferred(s *Session, logger *log.Logger) *Deferred {
	return NewDeferredWithClock(s, logger, testutil.RealClock{})
}

// NewDeferredWithClock is NewDeferred with an injected clock, so tests
// control when the merge delay elapses.
func NewDeferredWithClock(s *Session, logger *log.Logger, clock testutil.Clock) *Deferred {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Deferred{session: s, logger: logger, clock: clock}
}

// Schedule starts background execution of block immediately and returns
// without waiting for it. After the block completes, the goroutine
// waits out delay (a heuristic pause for the interactive reader to
// finish its own setup) and then merges the block's results into the primary
// session under its lock. Once scheduled, the block always runs to
// completion; there is no cancellation and no retry, and any failure is
// logged and swallowed so the interactive session stays usable.
func (d *Deferred) Schedule(block *Block, delay time.Duration) (*Handle, error) {
	if block == nil {
		return nil, fmt.Errorf("schedule: nil block")
	}
	if !d.scheduled.CompareAndSwap(false, true) {
		return nil, ErrAlreadyScheduled
	}

	snap := d.session.snapshotState()
	h := &Handle{done: make(chan struct{})}
	go d.run(block, delay, snap, h)

	return h, nil
}

// Done is closed when the background work, including the merge, has
// finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the background work finishes or ctx is canceled.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Deferred) run(block *Block, delay time.Duration, snap snapshot, h *Handle) {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("deferred block panicked", "block", block.name, "panic", r)
			h.err = fmt.Errorf("deferred block %q panicked: %v", block.name, r)
		}
	}()

	// No cancellation by design: once scheduled, the block runs to
	// completion or fails silently.
	ctx := context.Background()

	// Go-side tasks first; their exports ride along in the merge.
	exports := make(map[string]string)
	for _, task := range block.tasks {
		out, err := task(ctx)
		if err != nil {
			d.logger.Warn("deferred task failed", "block", block.name, "err", err)
			continue
		}
		for k, v := range out {
			exports[k] = v
		}
	}

	result := newDiff()
	env := backgroundEnv(snap, block.captured)
	runner, err := d.newBackgroundRunner(env)
	if err != nil {
		d.logger.Warn("background context unavailable", "block", block.name, "err", err)
	} else {
		// A failing block still merges whatever it defined before the
		// failure, matching what typing it at the prompt would leave
		// behind.
		if err := runner.Run(ctx, block.prog); err != nil {
			d.logger.Warn("deferred block failed", "block", block.name, "err", err)
		}
		result = diffBackground(runner, snapshot{vars: env, funcs: snap.funcs}, block.captured)
	}

	for k, v := range exports {
		result.vars[k] = varChange{value: v, exported: true}
	}

	// Heuristic: give the interactive reader time to finish its own
	// initialization before mutating session state. Not a guarantee.
	<-d.clock.After(delay)

	if result.empty() {
		return
	}
	if err := d.session.applyDiff(ctx, result); err != nil {
		d.logger.Warn("merge failed", "block", block.name, "err", err)
		h.err = err
	}
}

// backgroundEnv is the exact environment the background runner starts
// with: the process environment, overlaid with the primary session's
// state, overlaid with the block's captured bindings. The interpreter
// reports inherited environment through its variable table after a run,
// so the same map doubles as the diff baseline; anything the block
// merely inherited is never part of the merge.
func backgroundEnv(snap snapshot, captured map[string]string) map[string]string {
	env := make(map[string]string, len(snap.vars)+len(captured))
	for _, pair := range os.Environ() {
		if k, v, ok := strings.Cut(pair, "="); ok {
			env[k] = v
		}
	}
	for k, v := range snap.vars {
		env[k] = v
	}
	for k, v := range captured {
		env[k] = v
	}
	return env
}

// newBackgroundRunner builds the background execution context on the
// given environment and shares the completion registry before the block
// runs, so registrations land in the same registry the primary session
// reads.
func (d *Deferred) newBackgroundRunner(env map[string]string) (*interp.Runner, error) {
	pairs := make([]string, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, k+"="+v)
	}

	return interp.New(
		interp.Dir(d.session.dir),
		interp.Env(expand.ListEnviron(pairs...)),
		interp.StdIO(nil, io.Discard, io.Discard),
		interp.ExecHandlers(completionHandler(d.session.registry)),
	)
}

// applyDiff replays the diff in the primary session, serialized against
// interactive evaluation.
func (s *Session) applyDiff(ctx context.Context, d diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evalLocked(ctx, d.mergeProgram())
}
