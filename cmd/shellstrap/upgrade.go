// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"shellstrap/internal/config"
	"shellstrap/internal/selfupdate"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Check the configured repository for a newer release",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := NewApp(Dependencies{})

		cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{
			ConfigFilePath: cfgFile,
			RemoteURL:      cfgURL,
		})
		if err != nil {
			app.renderIssue(configIssueId(err))
			return err
		}

		client := selfupdate.NewClient(cfg.RepoOwner, cfg.RepoName)
		check, err := client.CheckVersion(cmd.Context(), app.Version)
		if err != nil {
			return fmt.Errorf("release check failed: %w", err)
		}

		if !check.UpdateAvailable {
			fmt.Fprintln(app.stdout, SuccessStyle.Render("✓")+" shellstrap is up to date ("+check.CurrentVersion+")")
			return nil
		}

		fmt.Fprintf(app.stdout, "%s %s → %s\n",
			WarningStyle.Render("update available:"), check.CurrentVersion, check.LatestVersion)
		if check.ReleaseURL != "" {
			fmt.Fprintln(app.stdout, SubtitleStyle.Render(check.ReleaseURL))
		}
		return nil
	},
}
