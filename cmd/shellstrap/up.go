// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shellstrap/internal/assets"
	"shellstrap/internal/banner"
	"shellstrap/internal/config"
	"shellstrap/internal/fonts"
	"shellstrap/internal/issue"
	"shellstrap/internal/selfupdate"
	"shellstrap/internal/session"
	"shellstrap/internal/theme"

	"github.com/spf13/cobra"
)

// defaultMergeDelay is the pause between the deferred block finishing
// and its merge into the session, giving the interactive reader time to
// settle. A heuristic, not a readiness guarantee.
const defaultMergeDelay = 100 * time.Millisecond

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap the environment and start the interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := NewApp(Dependencies{})
		return app.runUp(cmd.Context(), upOptions{
			ConfigPath:  cfgFile,
			ConfigURL:   cfgURL,
			MergeDelay:  defaultMergeDelay,
			Interactive: true,
		})
	},
}

type upOptions struct {
	// ConfigPath overrides the config file location.
	ConfigPath string
	// ConfigURL is fetched when the config file is absent locally.
	ConfigURL string
	// DataDir overrides the startup script directory.
	DataDir string
	// MergeDelay is the pause before the deferred merge.
	MergeDelay time.Duration
	// Interactive runs the read-eval loop after bootstrapping.
	Interactive bool
}

// runUp is the startup flow: load config, probe connectivity, ensure
// scripts, render the banner, start the session, schedule the deferred
// block, and (interactively) run the read-eval loop. Background work is
// only ever scheduled after configuration loaded completely.
func (a *App) runUp(ctx context.Context, opts upOptions) error {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: opts.ConfigPath,
		RemoteURL:      opts.ConfigURL,
	})
	if err != nil {
		a.renderIssue(configIssueId(err))
		return err
	}

	online := a.Probe(ctx, probeTarget(cfg.BaseURL), cfg.ProbeTimeout())
	a.Logger.Debug("connectivity probe", "online", online)

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir, err = config.DataDir()
		if err != nil {
			return err
		}
	}

	source, err := a.Ensure(ctx, assets.EnsureOptions{
		Dir:        dataDir,
		ContentURL: cfg.ContentURL,
		Online:     online,
	})
	if err != nil {
		a.renderIssue(issue.ScriptsUnavailableId)
		return err
	}
	a.Logger.Debug("startup scripts ready", "source", source)

	th, err := theme.Load(cfg.ThemePath, cfg.ThemeFile, cfg.PromptColor)
	if err != nil {
		// Cosmetic only: fall back to the built-in theme.
		a.Logger.Warn("theme unavailable, using defaults", "err", err)
		th = theme.Default(cfg.PromptColor)
	}

	fmt.Fprint(a.stdout, banner.Render(cfg.UserName, a.Version, cfg.SuppressBanner))

	sess, err := session.New(session.Options{
		Env: map[string]string{
			"SHELLSTRAP_USER":   cfg.UserName,
			"SHELLSTRAP_SOURCE": string(source),
		},
		Stdin:  a.stdin,
		Stdout: a.stdout,
		Stderr: a.stderr,
	})
	if err != nil {
		return err
	}

	block, err := a.buildBlock(cfg, dataDir, online)
	if err != nil {
		return err
	}

	// Fire and forget: the handle is not awaited on the startup path.
	if _, err := a.NewScheduler(sess, a.Logger).Schedule(block, opts.MergeDelay); err != nil {
		return err
	}

	if !opts.Interactive {
		return nil
	}
	return a.repl(ctx, sess, th.Prompt(cfg.UserName))
}

// buildBlock assembles the deferred startup block: the provisioned
// scripts sourced in order, plus the Go-side tasks (font install, and
// the release check when auto-update is on). The captured bindings are
// fixed at construction and never merge back into the session.
func (a *App) buildBlock(cfg *config.Config, dataDir string, online bool) (*session.Block, error) {
	captured := map[string]string{
		"STRAP_USER":       cfg.UserName,
		"STRAP_FILES":      strings.Join(assets.ScriptNames(), " "),
		"STRAP_ASSETS_DIR": dataDir,
		"STRAP_ONLINE":     boolFlag(online),
		"STRAP_BASE_URL":   cfg.BaseURL,
	}

	src := `
for f in $STRAP_FILES; do
	. "$STRAP_ASSETS_DIR/$f"
done
`

	var tasks []session.Task
	if online {
		tasks = append(tasks, fontTask(cfg))
	}
	if cfg.AutoUpdate && online {
		tasks = append(tasks, updateTask(cfg, a.Version))
	}

	return session.NewBlock("startup", src, captured, tasks...)
}

// fontTask installs the configured font, best-effort.
func fontTask(cfg *config.Config) session.Task {
	return func(ctx context.Context) (map[string]string, error) {
		installed, err := fonts.Install(ctx, fonts.InstallOptions{
			URL:  cfg.FontURL,
			Dir:  cfg.FontDir,
			File: cfg.FontFile,
		})
		if err != nil {
			return nil, err
		}
		if !installed {
			return nil, nil
		}
		return map[string]string{"SHELLSTRAP_FONT": cfg.FontName}, nil
	}
}

// updateTask surfaces a newer release, if any, into the session.
func updateTask(cfg *config.Config, version string) session.Task {
	return func(ctx context.Context) (map[string]string, error) {
		client := selfupdate.NewClient(cfg.RepoOwner, cfg.RepoName)
		check, err := client.CheckVersion(ctx, version)
		if err != nil {
			return nil, err
		}
		if !check.UpdateAvailable {
			return nil, nil
		}
		return map[string]string{"SHELLSTRAP_UPDATE": check.LatestVersion}, nil
	}
}

// repl is the interactive read-eval loop. It is deliberately plain: a
// buffered line reader against the session, no history or editing.
func (a *App) repl(ctx context.Context, sess *session.Session, prompt string) error {
	scanner := bufio.NewScanner(a.stdin)

	for {
		fmt.Fprint(a.stdout, prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := sess.Eval(ctx, line); err != nil {
			if code, ok := session.ExitStatus(err); ok {
				if sess.Exited() {
					if code != 0 {
						return fmt.Errorf("session exited with status %d", code)
					}
					return nil
				}
				// Command failure: status is the shell's business,
				// the loop keeps going.
				continue
			}
			fmt.Fprintln(a.stderr, ErrorStyle.Render("error: ")+err.Error())
		}
	}
}

// renderIssue prints the user-facing card for a fatal startup issue.
func (a *App) renderIssue(id issue.Id) {
	iss := issue.Lookup(id)
	if iss == nil {
		return
	}
	out, err := iss.Render("dark")
	if err != nil {
		out = string(iss.MarkdownMsg())
	}
	fmt.Fprintln(a.stderr, out)
}

// configIssueId maps a config load failure onto the issue shown to the
// user.
func configIssueId(err error) issue.Id {
	if errors.Is(err, config.ErrMissingKey) || errors.Is(err, config.ErrInvalidValue) {
		return issue.MissingConfigKeyId
	}
	return issue.ConfigUnreachableId
}

// probeTarget extracts the host to probe from the content base URL.
func probeTarget(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
