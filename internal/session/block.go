// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

type (
	// Task is a Go-side unit of deferred work (font install, release
	// check). The returned map is merged into the session as exported
	// variables. Task errors are logged and swallowed.
	Task func(ctx context.Context) (map[string]string, error)

	// Block is the deferred unit of startup work. It is constructed
	// once, executed exactly once by Deferred.Schedule, and discarded.
	// The captured bindings (identity, file list, base directory,
	// connectivity flag, base URL) are visible to the shell source as
	// environment variables during execution but are not merged back.
	Block struct {
		name     string
		prog     *syntax.File
		captured map[string]string
		tasks    []Task
	}
)

// NewBlock parses src into a deferred block. Parse errors surface here,
// at construction, so a malformed block never reaches the background
// context.
func NewBlock(name, src string, captured map[string]string, tasks ...Task) (*Block, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("deferred block %q: syntax error: %w", name, err)
	}

	bound := make(map[string]string, len(captured))
	for k, v := range captured {
		bound[k] = v
	}

	return &Block{name: name, prog: prog, captured: bound, tasks: tasks}, nil
}

// Name returns the block's diagnostic name.
func (b *Block) Name() string { return b.name }
