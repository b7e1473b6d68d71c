// Package emojilog announces custom emoji changes to a channel.
package emojilog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"termibot/pkg/actions"
	"termibot/pkg/dependencies"
	"termibot/pkg/events"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
)

// Name is the plugin name.
const Name = "emojilog"

// DefaultChannel is where announcements go when none is configured.
const DefaultChannel = "#general"

const header = "*Emoji changelog*"

// Plugin is the emoji changelog plugin. It has no subscriptions.
type Plugin struct {
	plugins.Base
	log     *logger.Logger
	channel string
}

// New creates the plugin posting to channel.
func New(log *logger.Logger, channel string) *Plugin {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Plugin{log: log.Named(Name), channel: channel}
}

// Name implements plugins.Plugin.
func (p *Plugin) Name() string { return Name }

// OnEvent posts one changelog entry per emoji_changed event.
func (p *Plugin) OnEvent(_ context.Context, ev events.Event, _ *dependencies.Dependencies) []actions.Action {
	change, ok := ev.(*events.EmojiChanged)
	if !ok {
		return nil
	}

	line := Describe(change)
	if line == "" {
		p.log.Debug("Ignoring emoji change", zap.String("subtype", change.Subtype))
		return nil
	}

	return []actions.Action{actions.MessageChannel{
		Channel: p.channel,
		Message: header + "\n" + line,
	}}
}

// Describe renders a changelog line, or "" for changes with nothing to show.
func Describe(change *events.EmojiChanged) string {
	switch change.Subtype {
	case events.EmojiAdd:
		if change.Name == "" {
			return ""
		}
		return fmt.Sprintf(":heavy_plus_sign: :%s: `:%s:`", change.Name, change.Name)

	case events.EmojiRemove:
		if len(change.Names) == 0 {
			return ""
		}
		quoted := make([]string, 0, len(change.Names))
		for _, n := range change.Names {
			quoted = append(quoted, fmt.Sprintf("`:%s:`", n))
		}
		return ":heavy_minus_sign: " + strings.Join(quoted, " ")

	case events.EmojiRename:
		if change.OldName == "" || change.NewName == "" {
			return ""
		}
		return fmt.Sprintf(":pencil2: `:%s:` is now :%s: `:%s:`", change.OldName, change.NewName, change.NewName)

	default:
		return ""
	}
}
