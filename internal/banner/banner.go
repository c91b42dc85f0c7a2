// SPDX-License-Identifier: MPL-2.0

// Package banner renders the startup banner.
package banner

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// Render returns the startup banner for the given identity and version.
// It returns an empty string when suppressed, so callers can print the
// result unconditionally.
func Render(user, version string, suppressed bool) string {
	if suppressed {
		return ""
	}

	title := titleStyle.Render("shellstrap")
	sub := subtitleStyle.Render(fmt.Sprintf("%s · %s", user, version))

	return fmt.Sprintf("%s %s\n", title, sub)
}
