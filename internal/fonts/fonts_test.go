// SPDX-License-Identifier: MPL-2.0

package fonts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestInstall_DownloadsWhenAbsent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("font-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()

	installed, err := Install(context.Background(), InstallOptions{
		URL:  srv.URL + "/FiraCode.ttf",
		Dir:  dir,
		File: "FiraCode.ttf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !installed {
		t.Error("installed = false, want true")
	}

	content, err := os.ReadFile(filepath.Join(dir, "FiraCode.ttf"))
	if err != nil {
		t.Fatalf("font file missing: %v", err)
	}
	if string(content) != "font-bytes" {
		t.Errorf("font content = %q", content)
	}
}

func TestInstall_SkipsWhenPresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "FiraCode.ttf"), []byte("existing"), 0o644); err != nil {
		t.Fatalf("failed to seed font file: %v", err)
	}

	installed, err := Install(context.Background(), InstallOptions{
		URL:  "http://127.0.0.1:0/unreachable",
		Dir:  dir,
		File: "FiraCode.ttf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if installed {
		t.Error("installed = true, want false (file already present)")
	}
}

func TestInstall_HTTPErrorFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Install(context.Background(), InstallOptions{
		URL:  srv.URL,
		Dir:  t.TempDir(),
		File: "FiraCode.ttf",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
