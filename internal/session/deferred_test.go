// SPDX-License-Identifier: MPL-2.0

package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shellstrap/internal/testutil"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func newTestSession(t *testing.T, reg *Registry) (*Session, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer
	s, err := New(Options{
		Dir:      t.TempDir(),
		Stdout:   &out,
		Stderr:   &out,
		Registry: reg,
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s, &out
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("deferred work did not finish cleanly: %v", err)
	}
}

// A function defined by the block must become callable from the primary
// session, behaving as if it had been typed at the prompt.
func TestSchedule_MergeVisibility(t *testing.T) {
	t.Parallel()

	s, out := newTestSession(t, nil)

	block, err := NewBlock("init", `
greet() {
	echo "hello from deferred init"
}
`, nil)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	waitDone(t, h)

	if !s.HasFunc("greet") {
		t.Fatal("function greet not visible in primary session after merge")
	}

	if err := s.Eval(context.Background(), "greet"); err != nil {
		t.Fatalf("calling merged function failed: %v", err)
	}
	if !strings.Contains(out.String(), "hello from deferred init") {
		t.Errorf("merged function output = %q", out.String())
	}
}

// A variable assigned by the block must read back from the primary
// session once the merge has happened.
func TestSchedule_VariableMerge(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)

	block, err := NewBlock("init", "X=42\nexport GREETING=hi", nil)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	waitDone(t, h)

	if got, ok := s.Var("X"); !ok || got != "42" {
		t.Errorf("X = %q (ok=%v), want 42", got, ok)
	}
	if got, ok := s.Var("GREETING"); !ok || got != "hi" {
		t.Errorf("GREETING = %q (ok=%v), want hi", got, ok)
	}

	// Merged values must be visible to shell expansion, not just the
	// Go-side accessor.
	if err := s.Eval(context.Background(), "echo merged:$X"); err != nil {
		t.Fatalf("eval failed: %v", err)
	}
}

// Block-local bindings must not leak into the primary session.
func TestSchedule_NoLeakage(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)

	block, err := NewBlock("init", `
setup() {
	local scratch="tmp-value"
	RESULT="done-$scratch"
}
setup
`, nil)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	waitDone(t, h)

	if got, ok := s.Var("RESULT"); !ok || got != "done-tmp-value" {
		t.Errorf("RESULT = %q (ok=%v), want done-tmp-value", got, ok)
	}
	if got, ok := s.Var("scratch"); ok {
		t.Errorf("local binding leaked into primary session: scratch=%q", got)
	}
}

// Captured block inputs are visible during execution but are not merged
// back as session state.
func TestSchedule_CapturedBindingsNotMerged(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)

	block, err := NewBlock("init", `SEEN="base=$STRAP_BASE_DIR"`, map[string]string{
		"STRAP_BASE_DIR": "/srv/strap",
	})
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	waitDone(t, h)

	if got, ok := s.Var("SEEN"); !ok || got != "base=/srv/strap" {
		t.Errorf("SEEN = %q (ok=%v), want base=/srv/strap", got, ok)
	}
	if _, ok := s.Var("STRAP_BASE_DIR"); ok {
		t.Error("captured binding leaked into primary session")
	}
}

// The merge diff must contain only state the block itself created.
// Inherited process environment and captured bindings stay out of it,
// so the merge program never redefines them in the primary session.
func TestDiffBackground_OnlyBlockOwnedState(t *testing.T) {
	// Not parallel: t.Setenv plants the canary.
	t.Setenv("STRAP_CANARY", "from-process-env")

	s, _ := newTestSession(t, nil)
	d := NewDeferred(s, nil)

	block, err := NewBlock("init", "X=42", map[string]string{"STRAP_CAPTURED": "1"})
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	snap := s.snapshotState()
	env := backgroundEnv(snap, block.captured)
	if got := env["STRAP_CANARY"]; got != "from-process-env" {
		t.Fatalf("baseline missing process env, STRAP_CANARY = %q", got)
	}

	runner, err := d.newBackgroundRunner(env)
	if err != nil {
		t.Fatalf("failed to build background runner: %v", err)
	}
	if err := runner.Run(context.Background(), block.prog); err != nil {
		t.Fatalf("block run failed: %v", err)
	}

	got := diffBackground(runner, snapshot{vars: env, funcs: snap.funcs}, block.captured)

	if len(got.funcs) != 0 {
		t.Errorf("diff funcs = %d, want 0", len(got.funcs))
	}
	names := maps.Keys(got.vars)
	slices.Sort(names)
	if len(names) != 1 || names[0] != "X" {
		t.Fatalf("diff vars = %v, want exactly [X]", names)
	}
	if ch := got.vars["X"]; ch.value != "42" {
		t.Errorf("diff X = %q, want 42", ch.value)
	}
}

// An existing registry is never replaced or cleared by Schedule, and
// registrations made by the block land in the shared instance.
func TestSchedule_RegistryIdempotentAndShared(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("git", StaticProvider("status", "commit"))

	s, _ := newTestSession(t, reg)
	if s.Registry() != reg {
		t.Fatal("session replaced the injected registry")
	}

	block, err := NewBlock("init", "complete strap up config upgrade", nil)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	waitDone(t, h)

	if s.Registry() != reg {
		t.Fatal("registry instance changed across Schedule")
	}
	if _, ok := reg.Lookup("git"); !ok {
		t.Error("pre-existing registration was cleared")
	}
	if p, ok := reg.Lookup("strap"); !ok {
		t.Error("block registration missing from shared registry")
	} else {
		// Prefix matching: "up" completes to both up and upgrade.
		if got := p("up"); len(got) != 2 || got[0] != "up" || got[1] != "upgrade" {
			t.Errorf(`completion for "up" = %v, want [up upgrade]`, got)
		}
		if got := p("conf"); len(got) != 1 || got[0] != "config" {
			t.Errorf(`completion for "conf" = %v, want [config]`, got)
		}
	}
}

// Schedule must return before the deferred work finishes.
func TestSchedule_NonBlocking(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)

	slow := func(ctx context.Context) (map[string]string, error) {
		time.Sleep(400 * time.Millisecond)
		return map[string]string{"SLOW_DONE": "1"}, nil
	}
	block, err := NewBlock("init", "", nil, slow)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	start := time.Now()
	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Schedule blocked for %v", elapsed)
	}

	select {
	case <-h.Done():
		t.Error("deferred work reported done immediately after Schedule")
	default:
	}

	waitDone(t, h)
	if got, _ := s.Var("SLOW_DONE"); got != "1" {
		t.Errorf("SLOW_DONE = %q, want 1", got)
	}
}

// A failing block must not break the interactive session, and state set
// before the failure still merges.
func TestSchedule_FailureIsolation(t *testing.T) {
	t.Parallel()

	s, out := newTestSession(t, nil)

	block, err := NewBlock("init", `
set -e
PARTIAL=ok
definitely-not-a-real-command-xyz
NEVER=reached
`, nil)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	waitDone(t, h)

	if err := s.Eval(context.Background(), "echo still alive"); err != nil {
		t.Fatalf("session unusable after failed block: %v", err)
	}
	if !strings.Contains(out.String(), "still alive") {
		t.Errorf("session output = %q", out.String())
	}

	if got, _ := s.Var("PARTIAL"); got != "ok" {
		t.Errorf("PARTIAL = %q, want ok (state before the failure merges)", got)
	}
	if _, ok := s.Var("NEVER"); ok {
		t.Error("statement after the failure appears to have run")
	}
}

// A failing Go-side task is logged and swallowed; remaining tasks and
// the shell block still run.
func TestSchedule_TaskFailureSwallowed(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)

	failing := func(ctx context.Context) (map[string]string, error) {
		return nil, errors.New("network down")
	}
	ok := func(ctx context.Context) (map[string]string, error) {
		return map[string]string{"TASK_OK": "1"}, nil
	}
	block, err := NewBlock("init", "FROM_SHELL=1", nil, failing, ok)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := NewDeferred(s, nil).Schedule(block, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	waitDone(t, h)

	if got, _ := s.Var("TASK_OK"); got != "1" {
		t.Errorf("TASK_OK = %q, want 1", got)
	}
	if got, _ := s.Var("FROM_SHELL"); got != "1" {
		t.Errorf("FROM_SHELL = %q, want 1", got)
	}
}

// Exactly one deferred block per startup.
func TestSchedule_SecondCallRejected(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)
	d := NewDeferred(s, nil)

	block, err := NewBlock("init", "A=1", nil)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := d.Schedule(block, time.Millisecond)
	if err != nil {
		t.Fatalf("first Schedule failed: %v", err)
	}
	waitDone(t, h)

	if _, err := d.Schedule(block, time.Millisecond); !errors.Is(err, ErrAlreadyScheduled) {
		t.Fatalf("second Schedule error = %v, want ErrAlreadyScheduled", err)
	}
}

// The merge must not happen before the configured delay elapses.
func TestSchedule_MergeWaitsForDelay(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)
	clock := testutil.NewFakeClock(time.Time{})
	d := NewDeferredWithClock(s, nil, clock)

	block, err := NewBlock("init", "DELAYED=1", nil)
	if err != nil {
		t.Fatalf("failed to build block: %v", err)
	}

	h, err := d.Schedule(block, 10*time.Second)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	// Wait until the background goroutine has finished the block and is
	// parked on the merge delay.
	deadline := time.Now().Add(5 * time.Second)
	for clock.Waiting() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("background work never reached the merge delay")
		}
		time.Sleep(time.Millisecond)
	}

	if got, _ := s.Var("DELAYED"); got != "" {
		t.Fatalf("DELAYED = %q before the delay elapsed, want unset", got)
	}

	clock.Advance(10 * time.Second)
	waitDone(t, h)

	if got, _ := s.Var("DELAYED"); got != "1" {
		t.Errorf("DELAYED = %q after merge, want 1", got)
	}
}
