// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

// Required configuration keys. All of them must be present in the config
// file; a missing key aborts startup before any background work is
// scheduled.
const (
	KeyUserName       = "USER_NAME"
	KeyRepoOwner      = "REPO_OWNER"
	KeyRepoName       = "REPO_NAME"
	KeyBaseURL        = "BASE_URL"
	KeyBranch         = "BRANCH"
	KeyThemeFile      = "THEME_FILE"
	KeyThemePath      = "THEME_PATH"
	KeyPromptColor    = "PROMPT_COLOR"
	KeyFontName       = "FONT_NAME"
	KeyFontURL        = "FONT_URL"
	KeyFontFile       = "FONT_FILE"
	KeyFontDir        = "FONT_DIR"
	KeyTimeout        = "TIMEOUT"
	KeyAutoUpdate     = "AUTO_UPDATE"
	KeySuppressBanner = "SUPPRESS_BANNER"
)

var (
	// ErrMissingKey is the sentinel error wrapped by MissingKeyError.
	ErrMissingKey = errors.New("missing required config key")
	// ErrInvalidValue is the sentinel error wrapped by InvalidValueError.
	ErrInvalidValue = errors.New("invalid config value")
	// ErrConfigUnreachable is returned when the config file is absent
	// locally and cannot be fetched from the remote source.
	ErrConfigUnreachable = errors.New("config source unreachable")
)

type (
	// Config is the validated, read-only shellstrap configuration.
	Config struct {
		// UserName is the identity shown in the banner and exported to
		// the interactive session.
		UserName string `mapstructure:"user_name"`
		// RepoOwner is the GitHub owner of the dotfiles repository.
		RepoOwner string `mapstructure:"repo_owner"`
		// RepoName is the GitHub repository holding startup assets.
		RepoName string `mapstructure:"repo_name"`
		// BaseURL is the raw-content base URL assets are fetched from.
		BaseURL string `mapstructure:"base_url"`
		// Branch is the git ref appended to BaseURL.
		Branch string `mapstructure:"branch"`
		// ThemeFile is the theme settings filename (TOML).
		ThemeFile string `mapstructure:"theme_file"`
		// ThemePath is the directory containing ThemeFile.
		ThemePath string `mapstructure:"theme_path"`
		// PromptColor is the prompt foreground color (hex or ANSI index).
		PromptColor string `mapstructure:"prompt_color"`
		// FontName is the display name of the terminal font.
		FontName string `mapstructure:"font_name"`
		// FontURL is the download URL of the font file.
		FontURL string `mapstructure:"font_url"`
		// FontFile is the filename the font is saved as.
		FontFile string `mapstructure:"font_file"`
		// FontDir is the directory the font is installed into.
		FontDir string `mapstructure:"font_dir"`
		// Timeout bounds network operations, in seconds.
		Timeout int `mapstructure:"timeout"`
		// AutoUpdate enables the deferred release check.
		AutoUpdate bool `mapstructure:"auto_update"`
		// SuppressBanner disables the startup banner.
		SuppressBanner bool `mapstructure:"suppress_banner"`
	}

	// MissingKeyError is returned when a required key is absent from the
	// config file. It wraps ErrMissingKey for errors.Is() compatibility.
	MissingKeyError struct {
		Key string
	}

	// InvalidValueError is returned when a key is present but its value
	// cannot be parsed as the expected type. It wraps ErrInvalidValue.
	InvalidValueError struct {
		Key   string
		Value string
		Want  string
	}
)

// RequiredKeys returns the keys that must be present in the config file,
// in a stable order suitable for error reporting.
func RequiredKeys() []string {
	return []string{
		KeyUserName, KeyRepoOwner, KeyRepoName, KeyBaseURL, KeyBranch,
		KeyThemeFile, KeyThemePath, KeyPromptColor, KeyFontName,
		KeyFontURL, KeyFontFile, KeyFontDir, KeyTimeout, KeyAutoUpdate,
		KeySuppressBanner,
	}
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required config key %q", e.Key)
}

func (e *MissingKeyError) Unwrap() error { return ErrMissingKey }

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("config key %q: value %q is not a valid %s", e.Key, e.Value, e.Want)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// ProbeTimeout returns the configured network timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ContentURL joins the raw-content base URL, branch, and file name into a
// fetchable URL.
func (c *Config) ContentURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", c.BaseURL, c.Branch, name)
}
