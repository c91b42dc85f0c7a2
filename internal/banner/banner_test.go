// SPDX-License-Identifier: MPL-2.0

package banner

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	out := Render("harper", "1.2.0", false)
	if !strings.Contains(out, "shellstrap") {
		t.Errorf("banner %q does not contain the app name", out)
	}
	if !strings.Contains(out, "harper") || !strings.Contains(out, "1.2.0") {
		t.Errorf("banner %q does not contain identity and version", out)
	}
}

func TestRender_Suppressed(t *testing.T) {
	t.Parallel()

	if out := Render("harper", "1.2.0", true); out != "" {
		t.Errorf("suppressed banner = %q, want empty", out)
	}
}
