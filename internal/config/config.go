// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "shellstrap"
	// FileName is the name of the configuration file.
	FileName = "shellstrap.env"
)

// configDirOverride allows tests to redirect the config directory.
var configDirOverride = ""

// SetConfigDirOverride overrides the config directory lookup. Pass an
// empty string to restore the default behavior. Intended for tests.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// ConfigDir returns the shellstrap configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DataDir returns the directory holding startup assets (scripts). The
// path follows $XDG_DATA_HOME, defaulting to ~/.local/share.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, AppName), nil
}

// loadWithOptions resolves the config file (fetching it from the remote
// source when absent locally), parses it, and validates that every
// required key is present with a well-typed value.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	path := opts.ConfigFilePath
	if path == "" {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cfgDir, FileName)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if opts.RemoteURL == "" {
			return nil, fmt.Errorf("%w: %s not found and no remote source configured", ErrConfigUnreachable, path)
		}
		content, err = fetchRemote(ctx, opts.httpClient(), opts.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigUnreachable, err)
		}
		if err := persist(path, content); err != nil {
			return nil, err
		}
	}

	pairs, err := ParsePairs(content, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return buildConfig(pairs)
}

// buildConfig validates the raw pairs and unmarshals them into a Config.
func buildConfig(pairs map[string]string) (*Config, error) {
	for _, key := range RequiredKeys() {
		if _, ok := pairs[key]; !ok {
			return nil, &MissingKeyError{Key: key}
		}
	}

	v := viper.New()
	for key, value := range pairs {
		switch key {
		case KeyTimeout:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, &InvalidValueError{Key: key, Value: value, Want: "integer"}
			}
			v.Set(strings.ToLower(key), n)
		case KeyAutoUpdate, KeySuppressBanner:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, &InvalidValueError{Key: key, Value: value, Want: "boolean"}
			}
			v.Set(strings.ToLower(key), b)
		default:
			v.Set(strings.ToLower(key), value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Timeout <= 0 {
		return nil, &InvalidValueError{Key: KeyTimeout, Value: strconv.Itoa(cfg.Timeout), Want: "positive integer"}
	}

	return &cfg, nil
}

// persist writes fetched config content next to where a local copy is
// expected, so subsequent startups skip the network round trip.
func persist(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to persist config file: %w", err)
	}
	return nil
}
