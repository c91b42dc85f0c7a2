// SPDX-License-Identifier: MPL-2.0

// Package assets ensures the startup scripts shellstrap depends on are
// present locally, fetching missing ones from the configured
// raw-content URL when the network is reachable.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const (
	// ScriptInstall provisions supporting shell modules.
	ScriptInstall = "install.sh"
	// ScriptTasks holds the helper routines run by the deferred block.
	ScriptTasks = "tasks.sh"
	// ScriptFunctions defines the user-facing session functions.
	ScriptFunctions = "functions.sh"

	// maxScriptBytes is the upper bound on a fetched script (5 MB).
	maxScriptBytes = 5 << 20
)

const (
	// SourceLocal means every script was already present on disk.
	SourceLocal Source = "local"
	// SourceRemote means at least one script was fetched this startup.
	SourceRemote Source = "remote"
)

// ErrScriptsUnavailable is returned when scripts are missing locally and
// the remote source cannot be used (offline). Startup aborts on it.
var ErrScriptsUnavailable = errors.New("startup scripts unavailable")

type (
	// Source records where this startup's scripts came from.
	Source string

	// EnsureOptions are the explicit inputs to Ensure.
	EnsureOptions struct {
		// Dir is the local directory holding the scripts.
		Dir string
		// ContentURL resolves a script name to its remote URL.
		ContentURL func(name string) string
		// Online reports the result of the startup connectivity probe.
		Online bool
		// HTTPClient overrides the download client, primarily for tests.
		HTTPClient *http.Client
	}
)

// ScriptNames returns the scripts required for a complete local copy.
func ScriptNames() []string {
	return []string{ScriptInstall, ScriptTasks, ScriptFunctions}
}

// Missing returns the required scripts absent from dir.
func Missing(dir string) []string {
	var missing []string
	for _, name := range ScriptNames() {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Ensure makes every required script available under opts.Dir and
// reports the source mode for this startup: SourceLocal when all scripts
// were present, SourceRemote when any had to be fetched. When scripts
// are missing and the host is offline, it fails with
// ErrScriptsUnavailable and startup must abort.
func Ensure(ctx context.Context, opts EnsureOptions) (Source, error) {
	missing := Missing(opts.Dir)
	if len(missing) == 0 {
		return SourceLocal, nil
	}

	if !opts.Online {
		return "", fmt.Errorf("%w: offline and missing %v under %s", ErrScriptsUnavailable, missing, opts.Dir)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	for _, name := range missing {
		if err := fetchScript(ctx, client, opts.ContentURL(name), filepath.Join(opts.Dir, name)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrScriptsUnavailable, err)
		}
	}

	return SourceRemote, nil
}

// fetchScript downloads a single script and writes it executable.
func fetchScript(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for '%s': %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch '%s': %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch '%s': HTTP %d", url, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read '%s': %w", url, err)
	}
	if len(content) > maxScriptBytes {
		return fmt.Errorf("script '%s' exceeds %d bytes", url, maxScriptBytes)
	}

	if err := os.WriteFile(dest, content, 0o755); err != nil {
		return fmt.Errorf("failed to write '%s': %w", dest, err)
	}

	return nil
}
