// SPDX-License-Identifier: MPL-2.0

// Package fonts installs the configured terminal font. Installation is
// best-effort: it runs inside the deferred startup block and its
// failures are logged, never fatal.
package fonts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// maxFontBytes is the upper bound on a downloaded font file (50 MB).
const maxFontBytes = 50 << 20

// InstallOptions are the explicit inputs to Install.
type InstallOptions struct {
	// URL is the font file download location.
	URL string
	// Dir is the destination font directory.
	Dir string
	// File is the filename the font is saved as.
	File string
	// HTTPClient overrides the download client, primarily for tests.
	HTTPClient *http.Client
}

// Install downloads the font into Dir/File unless it is already there.
// It reports whether a download happened.
func Install(ctx context.Context, opts InstallOptions) (bool, error) {
	dest := filepath.Join(opts.Dir, opts.File)
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create font directory: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build font request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to fetch font from '%s': %w", opts.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("failed to fetch font from '%s': HTTP %d", opts.URL, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxFontBytes+1))
	if err != nil {
		return false, fmt.Errorf("failed to read font response: %w", err)
	}
	if len(content) > maxFontBytes {
		return false, fmt.Errorf("font file exceeds %d bytes", maxFontBytes)
	}

	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return false, fmt.Errorf("failed to write font file: %w", err)
	}

	return true, nil
}
