// Package help answers the "help" command with the registered plugins'
// subscriptions.
package help

import (
	"context"
	"fmt"
	"strings"

	"termibot/pkg/actions"
	"termibot/pkg/dependencies"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
	"termibot/pkg/processor"
)

// Name is the plugin name.
const Name = "help"

// Lister reports registered plugins. *plugins.Registry implements it.
type Lister interface {
	Info() []plugins.PluginInfo
}

// Plugin is the help plugin.
type Plugin struct {
	plugins.Base
	log    *logger.Logger
	lister Lister
}

// New creates the plugin. The lister is read on every command, so plugins
// registered after this one are listed too.
func New(log *logger.Logger, lister Lister) *Plugin {
	return &Plugin{log: log.Named(Name), lister: lister}
}

// Name implements plugins.Plugin.
func (p *Plugin) Name() string { return Name }

// Subscriptions implements plugins.Plugin.
func (p *Plugin) Subscriptions() []plugins.Subscription {
	return []plugins.Subscription{
		plugins.Exact("help").WithDescription("help: list what I respond to"),
	}
}

// OnCommand implements plugins.Plugin.
func (p *Plugin) OnCommand(_ context.Context, cmd processor.Command, _ *dependencies.Dependencies) []actions.Action {
	return []actions.Action{actions.MessageChannel{
		Channel: cmd.Channel,
		Message: Render(p.lister.Info()),
	}}
}

// Render formats plugin info as a Slack message. Plugins without
// subscriptions are left out; a subscription without a description is shown
// by its pattern.
func Render(infos []plugins.PluginInfo) string {
	var b strings.Builder
	b.WriteString("*Commands*")

	listed := 0
	for _, info := range infos {
		for _, s := range info.Subscriptions {
			text := s.Description
			if text == "" {
				text = fmt.Sprintf("`%s`", s.Pattern)
			}
			fmt.Fprintf(&b, "\n• %s (%s)", text, info.Name)
			listed++
		}
	}

	if listed == 0 {
		return "I don't respond to any commands yet."
	}
	return b.String()
}
