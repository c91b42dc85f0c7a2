// SPDX-License-Identifier: MPL-2.0

// Package session implements the interactive shell session and its
// deferred initializer.
//
// A Session wraps an embedded shell interpreter (mvdan.cc/sh) together
// with a completion Registry shared by reference with any background
// execution context. Deferred runs a Block of startup work on a
// separate background interpreter, then merges the block's observable
// effects (new exported variables and function definitions) into the
// primary session by evaluating a generated merge program, so the
// definitions end up indistinguishable from ones typed at the prompt.
//
// The short delay inserted before the merge exists only to let the
// interactive line reader finish its own setup first. It is a
// race-reducing heuristic, not a readiness guarantee: the host exposes
// no signal for "editor ready", so the delay is documented best-effort.
package session
