// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"shellstrap/internal/assets"
	"shellstrap/internal/config"
	"shellstrap/internal/netcheck"
	"shellstrap/internal/session"

	"github.com/charmbracelet/log"
)

type (
	// ProbeFunc is the startup connectivity check.
	ProbeFunc func(ctx context.Context, target string, timeout time.Duration) bool

	// EnsureFunc provisions the local startup scripts.
	EnsureFunc func(ctx context.Context, opts assets.EnsureOptions) (assets.Source, error)

	// Scheduler runs the deferred startup block. It exists as an
	// interface so tests can observe that background work is never
	// scheduled when configuration loading fails.
	Scheduler interface {
		Schedule(block *session.Block, delay time.Duration) (*session.Handle, error)
	}

	// App wires CLI services and shared dependencies. Cobra command
	// handlers delegate through it; tests supply fakes via Dependencies.
	App struct {
		Config       config.Provider
		Probe        ProbeFunc
		Ensure       EnsureFunc
		NewScheduler func(s *session.Session, logger *log.Logger) Scheduler
		Logger       *log.Logger
		Version      string
		stdin        io.Reader
		stdout       io.Writer
		stderr       io.Writer
	}

	// Dependencies defines the injection points for building an App.
	// Nil fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config       config.Provider
		Probe        ProbeFunc
		Ensure       EnsureFunc
		NewScheduler func(s *session.Session, logger *log.Logger) Scheduler
		Logger       *log.Logger
		Version      string
		Stdin        io.Reader
		Stdout       io.Writer
		Stderr       io.Writer
	}
)

// NewApp builds an App, filling nil dependencies with production
// implementations.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:       deps.Config,
		Probe:        deps.Probe,
		Ensure:       deps.Ensure,
		NewScheduler: deps.NewScheduler,
		Logger:       deps.Logger,
		Version:      deps.Version,
		stdin:        deps.Stdin,
		stdout:       deps.Stdout,
		stderr:       deps.Stderr,
	}

	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Probe == nil {
		app.Probe = netcheck.Probe
	}
	if app.Ensure == nil {
		app.Ensure = assets.Ensure
	}
	if app.NewScheduler == nil {
		app.NewScheduler = func(s *session.Session, logger *log.Logger) Scheduler {
			return session.NewDeferred(s, logger)
		}
	}
	if app.Logger == nil {
		app.Logger = newLogger()
	}
	if app.Version == "" {
		app.Version = Version
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}

	return app
}
