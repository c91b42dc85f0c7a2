// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func releaseServer(t *testing.T, tag string, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/harper/dotfiles/releases/latest" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"tag_name":%q,"name":"release %s","html_url":"https://example.com/%s"}`, tag, tag, tag)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestCheckVersion_UpdateAvailable(t *testing.T) {
	t.Parallel()

	srv := releaseServer(t, "v1.3.0", http.StatusOK)
	c := NewClient("harper", "dotfiles", WithBaseURL(srv.URL))

	check, err := c.CheckVersion(context.Background(), "1.2.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !check.UpdateAvailable {
		t.Error("UpdateAvailable = false, want true")
	}
	if check.LatestVersion != "v1.3.0" {
		t.Errorf("LatestVersion = %q, want v1.3.0", check.LatestVersion)
	}
}

func TestCheckVersion_UpToDate(t *testing.T) {
	t.Parallel()

	srv := releaseServer(t, "v1.2.0", http.StatusOK)
	c := NewClient("harper", "dotfiles", WithBaseURL(srv.URL))

	check, err := c.CheckVersion(context.Background(), "v1.2.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.UpdateAvailable {
		t.Error("UpdateAvailable = true, want false")
	}
}

func TestCheckVersion_DevBuildSkipsAPI(t *testing.T) {
	t.Parallel()

	// No server at all: a dev build must not reach the network.
	c := NewClient("harper", "dotfiles", WithBaseURL("http://127.0.0.1:0"))

	check, err := c.CheckVersion(context.Background(), "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.UpdateAvailable {
		t.Error("UpdateAvailable = true for a dev build")
	}
}

func TestCheckVersion_InvalidVersion(t *testing.T) {
	t.Parallel()

	c := NewClient("harper", "dotfiles")
	if _, err := c.CheckVersion(context.Background(), "not-a-version"); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("error = %v, want ErrInvalidVersion", err)
	}
}

func TestLatestRelease_NotFound(t *testing.T) {
	t.Parallel()

	srv := releaseServer(t, "", http.StatusNotFound)
	c := NewClient("harper", "dotfiles", WithBaseURL(srv.URL))

	if _, err := c.LatestRelease(context.Background()); !errors.Is(err, ErrReleaseNotFound) {
		t.Fatalf("error = %v, want ErrReleaseNotFound", err)
	}
}
