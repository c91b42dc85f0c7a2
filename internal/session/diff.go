// SPDX-License-Identifier: MPL-2.0

package session

import (
	"bytes"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ignoredVars are interpreter-maintained variables that must never be
// carried from the background context into the primary session.
var ignoredVars = map[string]struct{}{
	"IFS":    {},
	"OPTIND": {},
	"PWD":    {},
	"OLDPWD": {},
}

type (
	varChange struct {
		value    string
		exported bool
	}

	// diff is the structured result of a background run: the bindings
	// and definitions to replay in the primary session. Modeling the
	// merge as an explicit diff (instead of scope-sharing tricks)
	// keeps merge-internal state out of the session entirely.
	diff struct {
		vars  map[string]varChange
		funcs map[string]string
	}
)

func newDiff() diff {
	return diff{vars: make(map[string]varChange), funcs: make(map[string]string)}
}

func (d diff) empty() bool {
	return len(d.vars) == 0 && len(d.funcs) == 0
}

// diffBackground compares the background runner's state after the block
// ran against its pre-block baseline. The baseline vars must be the
// exact environment the runner started with (the interpreter reports
// that inherited environment through Vars after a run, and none of it
// belongs in the merge). Captured bindings, local variables,
// interpreter bookkeeping, and non-string values are excluded; so are
// variables whose value matches the baseline.
func diffBackground(r *interp.Runner, base snapshot, captured map[string]string) diff {
	d := newDiff()

	for name, v := range r.Vars {
		if _, skip := ignoredVars[name]; skip {
			continue
		}
		if _, skip := captured[name]; skip {
			continue
		}
		if v.Local || v.Kind != expand.String {
			continue
		}
		val := v.String()
		if old, ok := base.vars[name]; ok && old == val {
			continue
		}
		d.vars[name] = varChange{value: val, exported: v.Exported}
	}

	for name, body := range r.Funcs {
		if _, ok := base.funcs[name]; ok {
			continue
		}
		src, err := printFunc(name, body)
		if err != nil {
			continue
		}
		d.funcs[name] = src
	}

	return d
}

// mergeProgram renders the diff as shell source. Evaluating it in the
// primary session is the merge: definitions become ordinary session
// definitions, with no temporary bindings introduced along the way.
func (d diff) mergeProgram() string {
	var b strings.Builder

	varNames := maps.Keys(d.vars)
	slices.Sort(varNames)
	for _, name := range varNames {
		change := d.vars[name]
		quoted, err := syntax.Quote(change.value, syntax.LangBash)
		if err != nil {
			continue
		}
		if change.exported {
			b.WriteString("export ")
		}
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(quoted)
		b.WriteString("\n")
	}

	funcNames := maps.Keys(d.funcs)
	slices.Sort(funcNames)
	for _, name := range funcNames {
		b.WriteString(d.funcs[name])
		b.WriteString("\n")
	}

	return b.String()
}

// printFunc renders a captured function body back into a definition.
func printFunc(name string, body *syntax.Stmt) (string, error) {
	var buf bytes.Buffer
	if err := syntax.NewPrinter().Print(&buf, body); err != nil {
		return "", err
	}
	return name + "() " + strings.TrimRight(buf.String(), "\n"), nil
}
