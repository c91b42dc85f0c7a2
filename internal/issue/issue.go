// SPDX-License-Identifier: MPL-2.0

// Package issue renders user-facing cards for the fatal startup paths.
// Startup aborts are rare and always need the user to do something, so
// they are worth a readable markdown card instead of a bare error line.
package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type (
	// Id identifies a known fatal startup issue.
	Id int

	// MarkdownMsg is the card body in markdown.
	MarkdownMsg string

	// HttpLink points at documentation for the issue.
	HttpLink string

	// Issue couples a fatal startup condition with the guidance shown
	// to the user before the process exits.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

const (
	// ConfigUnreachableId covers a config file that is absent locally
	// and cannot be fetched.
	ConfigUnreachableId Id = iota + 1
	// MissingConfigKeyId covers a required key absent from the config.
	MissingConfigKeyId
	// ScriptsUnavailableId covers missing startup scripts while offline.
	ScriptsUnavailableId
)

// render is a seam for tests; glamour.Render talks to the terminal.
var render = glamour.Render

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

// Render produces the styled card text for the terminal.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- " + string(link) + "\n"
		}
	}
	return render(md, stylePath)
}

var (
	configUnreachableIssue = &Issue{
		id: ConfigUnreachableId,
		mdMsg: `
# Configuration unavailable

shellstrap found no local config file and could not fetch one from the
configured remote.

## Things you can try
- Check your network connection and retry
- Create the config file by hand:
~~~
$ mkdir -p ~/.config/shellstrap && $EDITOR ~/.config/shellstrap/shellstrap.env
~~~
- Point at an explicit file with ` + "`--config`",
		docLinks: []HttpLink{"https://github.com/shellstrap/shellstrap#configuration"},
	}

	missingConfigKeyIssue = &Issue{
		id: MissingConfigKeyId,
		mdMsg: `
# Incomplete configuration

The config file is missing one or more required keys. shellstrap will
not start on a partial configuration.

## Things you can try
- Run ` + "`shellstrap config show`" + ` to see what was loaded
- Compare your file against the documented key list`,
		docLinks: []HttpLink{"https://github.com/shellstrap/shellstrap#required-keys"},
	}

	scriptsUnavailableIssue = &Issue{
		id: ScriptsUnavailableId,
		mdMsg: `
# Startup scripts unavailable

Some startup scripts are missing locally and the remote source is
unreachable, so there is nothing to run.

## Things you can try
- Reconnect and start a new shell; missing scripts are fetched once
- Copy the scripts into place manually from another machine`,
		docLinks: []HttpLink{"https://github.com/shellstrap/shellstrap#startup-scripts"},
	}
)

// Lookup returns the issue for id, or nil for an unknown id.
func Lookup(id Id) *Issue {
	switch id {
	case ConfigUnreachableId:
		return configUnreachableIssue
	case MissingConfigKeyId:
		return missingConfigKeyIssue
	case ScriptsUnavailableId:
		return scriptsUnavailableIssue
	}
	return nil
}
