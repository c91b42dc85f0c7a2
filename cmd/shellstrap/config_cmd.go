// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"shellstrap/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the shellstrap configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded configuration",
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

		for _, kv := range configRows(cfg) {
			fmt.Fprintf(app.stdout, "%s=%s\n", SubtitleStyle.Render(kv[0]), kv[1])
		}
		return nil
	},
}

// configRows flattens the config into display order, matching the
// required-key order users see in error messages.
func configRows(cfg *config.Config) [][2]string {
	return [][2]string{
		{config.KeyUserName, cfg.UserName},
		{config.KeyRepoOwner, cfg.RepoOwner},
		{config.KeyRepoName, cfg.RepoName},
		{config.KeyBaseURL, cfg.BaseURL},
		{config.KeyBranch, cfg.Branch},
		{config.KeyThemeFile, cfg.ThemeFile},
		{config.KeyThemePath, cfg.ThemePath},
		{config.KeyPromptColor, cfg.PromptColor},
		{config.KeyFontName, cfg.FontName},
		{config.KeyFontURL, cfg.FontURL},
		{config.KeyFontFile, cfg.FontFile},
		{config.KeyFontDir, cfg.FontDir},
		{config.KeyTimeout, strconv.Itoa(cfg.Timeout)},
		{config.KeyAutoUpdate, strconv.FormatBool(cfg.AutoUpdate)},
		{config.KeySuppressBanner, strconv.FormatBool(cfg.SuppressBanner)},
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
