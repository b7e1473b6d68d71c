// Package songlink replies to Spotify links with a platform-neutral
// song.link URL in the message's thread.
package songlink

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"termibot/pkg/actions"
	"termibot/pkg/dependencies"
	"termibot/pkg/events"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
)

// Name is the plugin name.
const Name = "songlink"

var spotifyLink = regexp.MustCompile(`https://open\.spotify\.com/[-a-zA-Z0-9()@:%_+.~#?&/=]*`)

// Spotify resource kinds and the song.link host serving each of them.
var linkBases = map[string]string{
	"track": "https://song.link/s/",
	"album": "https://album.link/s/",
}

// Plugin is the songlink plugin. It has no subscriptions.
type Plugin struct {
	plugins.Base
	log *logger.Logger
}

// New creates the plugin.
func New(log *logger.Logger) *Plugin {
	return &Plugin{log: log.Named(Name)}
}

// Name implements plugins.Plugin.
func (p *Plugin) Name() string { return Name }

// OnEvent replies in thread with one song.link URL per Spotify link found.
func (p *Plugin) OnEvent(_ context.Context, ev events.Event, _ *dependencies.Dependencies) []actions.Action {
	msg, ok := ev.(*events.Message)
	if !ok || msg.Text == "" || msg.BotID != "" {
		return nil
	}

	links := Rewrite(msg.Text)
	if len(links) == 0 {
		return nil
	}

	thread := msg.ThreadTS
	if thread == "" {
		thread = msg.ID
	}

	p.log.Debug("Rewrote Spotify links",
		zap.String("channel", msg.Channel),
		zap.Int("links", len(links)),
	)
	return []actions.Action{actions.ReplyToThread{
		Channel:  msg.Channel,
		ThreadID: thread,
		Message:  strings.Join(links, "\n"),
	}}
}

// Rewrite returns the song.link equivalents of the Spotify track and album
// links in text, in order of appearance and without duplicates.
func Rewrite(text string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, raw := range spotifyLink.FindAllString(text, -1) {
		link, ok := rewriteOne(raw)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
	}
	return out
}

func rewriteOne(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	// Paths look like /track/<id>, optionally behind a locale segment such
	// as /intl-de/track/<id>.
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		base, ok := linkBases[segments[i]]
		if ok && segments[i+1] != "" {
			return base + segments[i+1], true
		}
	}
	return "", false
}
