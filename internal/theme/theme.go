// SPDX-License-Identifier: MPL-2.0

// Package theme resolves the prompt theme from the configured TOML
// settings file and renders the interactive prompt.
package theme

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

const (
	// defaultSymbol is the prompt symbol used when the theme file does
	// not override it.
	defaultSymbol = "❯"
	// defaultColor is the prompt color used when neither the theme file
	// nor the config provides one.
	defaultColor = "#7C3AED"
)

type (
	// Theme holds the prompt appearance settings.
	Theme struct {
		// Symbol is the prompt symbol shown before the cursor.
		Symbol string `toml:"symbol"`
		// Color is the prompt foreground color (hex or ANSI index).
		Color string `toml:"color"`
		// ShowUser prefixes the prompt with the configured identity.
		ShowUser bool `toml:"show_user"`
	}
)

// Default returns the built-in theme with color overriding the default
// prompt color when non-empty.
func Default(color string) Theme {
	th := Theme{Symbol: defaultSymbol, Color: defaultColor, ShowUser: true}
	if color != "" {
		th.Color = color
	}
	return th
}

// Load reads the theme settings file at dir/file. A missing file is not
// an error: the built-in defaults (tinted with promptColor) are
// returned. A present but malformed file is an error.
func Load(dir, file, promptColor string) (Theme, error) {
	th := Default(promptColor)

	path := filepath.Join(dir, file)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return th, nil
		}
		return Theme{}, fmt.Errorf("failed to read theme file '%s': %w", path, err)
	}

	if err := toml.Unmarshal(content, &th); err != nil {
		return Theme{}, fmt.Errorf("failed to parse theme file '%s': %w", path, err)
	}
	if th.Symbol == "" {
		th.Symbol = defaultSymbol
	}
	if th.Color == "" {
		th.Color = Default(promptColor).Color
	}

	return th, nil
}

// Prompt renders the styled interactive prompt for the given identity.
func (t Theme) Prompt(user string) string {
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Color))

	if t.ShowUser && user != "" {
		return style.Render(user+" "+t.Symbol) + " "
	}
	return style.Render(t.Symbol) + " "
}
