// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxConfigBytes is the upper bound on remote config size (1 MB).
// Prevents unbounded memory consumption from a misconfigured URL.
const maxConfigBytes = 1 << 20

// fetchRemote downloads the config file from url. The caller's context
// bounds the request; no retry is attempted.
func fetchRemote(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build config request: %w", err)
	}
	req.Header.Set("User-Agent", AppName)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch config from '%s': %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch config from '%s': HTTP %d", url, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config response: %w", err)
	}
	if len(content) > maxConfigBytes {
		return nil, fmt.Errorf("config response exceeds %d bytes", maxConfigBytes)
	}

	return content, nil
}
