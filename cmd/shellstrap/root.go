// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for shellstrap.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string
	// cfgURL is fetched when the local config file is absent.
	cfgURL string

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "shellstrap",
		Short: "A shell environment bootstrapper",
		Long: TitleStyle.Render("shellstrap") + SubtitleStyle.Render(" - A shell environment bootstrapper") + `

shellstrap prepares your terminal on startup: it loads a flat key=value
configuration (fetching it once when absent), probes connectivity,
provisions startup scripts and fonts, configures the prompt theme, and
starts an interactive shell session. Expensive setup runs in a deferred
background block whose definitions are merged into the session shortly
after the prompt appears.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Put shellstrap.env in ~/.config/shellstrap (or pass --config-url)
  2. Add 'shellstrap up' to your terminal profile
  3. Inspect the loaded settings with: shellstrap config show

` + SubtitleStyle.Render("Examples:") + `
  shellstrap up             Bootstrap and start the interactive session
  shellstrap config show    Show current configuration
  shellstrap upgrade        Check for a newer release`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/shellstrap/shellstrap.env)")
	rootCmd.PersistentFlags().StringVar(&cfgURL, "config-url", os.Getenv("SHELLSTRAP_CONFIG_URL"), "remote URL fetched when the config file is absent")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(newCompletionCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// newLogger builds the CLI logger honoring the --verbose flag.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "shellstrap",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
