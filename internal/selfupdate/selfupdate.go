// SPDX-License-Identifier: MPL-2.0

// Package selfupdate checks the configured dotfiles repository for a
// newer shellstrap release. The check runs as a deferred task when
// auto-update is enabled, and on demand via the upgrade command. It
// never replaces the running binary; it reports what is available.
package selfupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/mod/semver"
)

// maxJSONResponseBytes is the upper bound on API response size (10 MB).
const maxJSONResponseBytes = 10 << 20

var (
	// ErrReleaseNotFound is returned when the repository has no
	// published release.
	ErrReleaseNotFound = errors.New("release not found")
	// ErrInvalidVersion indicates a version string is not valid semver.
	ErrInvalidVersion = errors.New("invalid semantic version")
)

type (
	// Release is the subset of a GitHub release the check consumes.
	Release struct {
		TagName    string
		Name       string
		Prerelease bool
		Draft      bool
		HTMLURL    string
	}

	// Check is the outcome of comparing the running version against
	// the latest published release.
	Check struct {
		CurrentVersion  string
		LatestVersion   string
		UpdateAvailable bool
		ReleaseURL      string
	}

	// Client queries the GitHub releases API for the configured
	// repository.
	Client struct {
		httpClient *http.Client
		owner      string
		repo       string
		baseURL    string
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)

	releaseWire struct {
		TagName    string `json:"tag_name"`
		Name       string `json:"name"`
		Prerelease bool   `json:"prerelease"`
		Draft      bool   `json:"draft"`
		HTMLURL    string `json:"html_url"`
	}
)

// WithHTTPClient sets a custom HTTP client, useful for tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(cl *Client) { cl.baseURL = strings.TrimRight(base, "/") }
}

// NewClient creates a release client for owner/repo.
func NewClient(owner, repo string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		owner:      owner,
		repo:       repo,
		baseURL:    "https://api.github.com",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches the newest stable (non-draft, non-prerelease)
// release of the configured repository.
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "shellstrap")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrReleaseNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching latest release: unexpected status %d", resp.StatusCode)
	}

	var wire releaseWire
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	if wire.Draft || wire.Prerelease {
		return nil, ErrReleaseNotFound
	}

	return &Release{
		TagName:    wire.TagName,
		Name:       wire.Name,
		Prerelease: wire.Prerelease,
		Draft:      wire.Draft,
		HTMLURL:    wire.HTMLURL,
	}, nil
}

// CheckVersion compares current against the latest release tag.
// current may omit the leading "v"; development builds ("dev") never
// report an available update.
func (c *Client) CheckVersion(ctx context.Context, current string) (*Check, error) {
	check := &Check{CurrentVersion: current}

	if current == "dev" || current == "" {
		return check, nil
	}

	normalized := normalize(current)
	if !semver.IsValid(normalized) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, current)
	}

	rel, err := c.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	latest := normalize(rel.TagName)
	if !semver.IsValid(latest) {
		return nil, fmt.Errorf("%w: release tag %q", ErrInvalidVersion, rel.TagName)
	}

	check.LatestVersion = latest
	check.ReleaseURL = rel.HTMLURL
	check.UpdateAvailable = semver.Compare(latest, normalized) > 0

	return check, nil
}

func normalize(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
