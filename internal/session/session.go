// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// Options configures a new Session.
	Options struct {
		// Env is merged over the process environment for the session.
		Env map[string]string
		// Dir is the working directory; empty means the process cwd.
		Dir string
		// Stdin, Stdout, Stderr are the session's standard streams.
		Stdin          io.Reader
		Stdout, Stderr io.Writer
		// Registry is the completion registry shared with background
		// contexts. When nil, the session creates one; an existing
		// registry is never replaced or cleared.
		Registry *Registry
	}

	// Session is the primary interactive execution context. All
	// evaluation is serialized on an internal mutex, so a deferred
	// merge never interleaves with a command the user is running.
	Session struct {
		mu       sync.Mutex
		parser   *syntax.Parser
		runner   *interp.Runner
		registry *Registry
		env      map[string]string
		dir      string
	}

	// snapshot captures the subset of session state a background
	// context diffs against: variable values and known function names.
	snapshot struct {
		vars  map[string]string
		funcs map[string]struct{}
	}
)

// New creates the primary interactive session.
func New(opts Options) (*Session, error) {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	env := make(map[string]string, len(opts.Env))
	for k, v := range opts.Env {
		env[k] = v
	}

	runner, err := interp.New(
		interp.Dir(opts.Dir),
		interp.Env(expand.ListEnviron(envPairs(env)...)),
		interp.StdIO(opts.Stdin, opts.Stdout, opts.Stderr),
		interp.ExecHandlers(completionHandler(opts.Registry)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session interpreter: %w", err)
	}

	return &Session{
		parser:   syntax.NewParser(),
		runner:   runner,
		registry: opts.Registry,
		env:      env,
		dir:      opts.Dir,
	}, nil
}

// Eval runs src as if it were typed at the prompt. Definitions and
// variable assignments persist across calls.
func (s *Session) Eval(ctx context.Context, src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evalLocked(ctx, src)
}

func (s *Session) evalLocked(ctx context.Context, src string) error {
	file, err := s.parser.Parse(strings.NewReader(src), "session")
	if err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}
	return s.runner.Run(ctx, file)
}

// Var returns the value of a session variable, consulting shell state
// first and the session's base environment second.
func (s *Session) Var(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.runner.Vars[name]; ok {
		return v.String(), true
	}
	if v, ok := s.env[name]; ok {
		return v, true
	}
	return "", false
}

// Exited reports whether the session ran an explicit exit.
func (s *Session) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Exited()
}

// HasFunc reports whether a function is defined in the session.
func (s *Session) HasFunc(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runner.Funcs[name]
	return ok
}

// Registry returns the session's shared completion registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// snapshotState captures the current variable values and function names
// for a background context to diff against.
func (s *Session) snapshotState() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		vars:  make(map[string]string, len(s.env)+len(s.runner.Vars)),
		funcs: make(map[string]struct{}, len(s.runner.Funcs)),
	}
	for k, v := range s.env {
		snap.vars[k] = v
	}
	for k, v := range s.runner.Vars {
		snap.vars[k] = v.String()
	}
	for k := range s.runner.Funcs {
		snap.funcs[k] = struct{}{}
	}
	return snap
}

// envPairs flattens the process environment plus overrides into the
// KEY=value list the interpreter consumes. Later entries win.
func envPairs(overrides map[string]string) []string {
	pairs := os.Environ()
	for k, v := range overrides {
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}

// completionHandler intercepts the `complete` builtin so shell code in
// either execution context can register completion providers into the
// shared registry. Everything else falls through to the default
// handler.
//
// Usage from shell code: complete KEY [WORD...]
func completionHandler(reg *Registry) func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) == 0 || args[0] != "complete" {
				return next(ctx, args)
			}
			if len(args) < 2 {
				return interp.ExitStatus(2)
			}
			reg.Register(args[1], StaticProvider(args[2:]...))
			return nil
		}
	}
}

// ExitStatus extracts the shell exit status from an Eval error.
func ExitStatus(err error) (int, bool) {
	var status interp.ExitStatus
	if errors.As(err, &status) {
		return int(status), true
	}
	return 0, false
}
