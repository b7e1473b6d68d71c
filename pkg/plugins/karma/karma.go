// Package karma tracks "thing++" and "thing--" in messages and answers
// karma queries.
package karma

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"termibot/pkg/actions"
	"termibot/pkg/dependencies"
	"termibot/pkg/events"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
	"termibot/pkg/processor"
)

// Name is the plugin name.
const Name = "karma"

const (
	DefaultUpvoteEmoji   = "upboat"
	DefaultDownvoteEmoji = "downboat"

	defaultTop = 10
	maxTop     = 25
)

const usage = "Usage: `karma <name>`, `karma top [n]` or `karma reasons <name>`"

// Config configures the plugin.
type Config struct {
	UpvoteEmoji   string
	DownvoteEmoji string
}

// Plugin is the karma plugin. It needs a Store registered in the
// dependencies under the Store interface.
type Plugin struct {
	plugins.Base
	log      *logger.Logger
	upvote   string
	downvote string
}

// New creates the plugin.
func New(log *logger.Logger, cfg Config) *Plugin {
	p := &Plugin{
		log:      log.Named(Name),
		upvote:   strings.Trim(cfg.UpvoteEmoji, ":"),
		downvote: strings.Trim(cfg.DownvoteEmoji, ":"),
	}
	if p.upvote == "" {
		p.upvote = DefaultUpvoteEmoji
	}
	if p.downvote == "" {
		p.downvote = DefaultDownvoteEmoji
	}
	return p
}

// Name implements plugins.Plugin.
func (p *Plugin) Name() string { return Name }

// Subscriptions implements plugins.Plugin.
func (p *Plugin) Subscriptions() []plugins.Subscription {
	return []plugins.Subscription{
		plugins.Exact("karma").WithDescription("karma <name> | karma top [n] | karma reasons <name>"),
	}
}

// OnEvent applies every karma change in a message and reports the new totals.
func (p *Plugin) OnEvent(ctx context.Context, ev events.Event, deps *dependencies.Dependencies) []actions.Action {
	msg, ok := ev.(*events.Message)
	if !ok || msg.Text == "" || msg.BotID != "" {
		return nil
	}

	changes := Parse(msg.Text)
	if len(changes) == 0 {
		return nil
	}

	store, ok := p.store(deps)
	if !ok {
		return nil
	}

	var out []actions.Action
	for _, c := range changes {
		total, err := store.Change(ctx, c.Name, c.Amount())
		if err != nil {
			p.log.Error("Failed to change karma", zap.String("name", c.Name), zap.Error(err))
			continue
		}
		if c.Reason != "" {
			if err := store.AddReason(ctx, c.Name, c.Amount(), c.Reason); err != nil {
				p.log.Warn("Failed to record karma reason", zap.String("name", c.Name), zap.Error(err))
			}
		}

		emoji := p.upvote
		if !c.Increment {
			emoji = p.downvote
		}
		out = append(out, actions.MessageChannel{
			Channel: msg.Channel,
			Message: fmt.Sprintf(":%s: %s: %d", emoji, c.Name, total),
		})
	}
	return out
}

// OnCommand answers karma queries.
func (p *Plugin) OnCommand(ctx context.Context, cmd processor.Command, deps *dependencies.Dependencies) []actions.Action {
	store, ok := p.store(deps)
	if !ok {
		return nil
	}

	text, err := p.answer(ctx, store, cmd.Args)
	if err != nil {
		p.log.Error("Karma query failed", zap.Strings("args", cmd.Args), zap.Error(err))
		return nil
	}
	return []actions.Action{actions.MessageChannel{Channel: cmd.Channel, Message: text}}
}

func (p *Plugin) answer(ctx context.Context, store Store, args []string) (string, error) {
	if len(args) == 0 {
		return usage, nil
	}

	switch strings.ToLower(args[0]) {
	case "top":
		n := defaultTop
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed <= 0 {
				return usage, nil
			}
			n = min(parsed, maxTop)
		}
		return p.top(ctx, store, n)

	case "reasons":
		if len(args) < 2 {
			return usage, nil
		}
		return p.reasons(ctx, store, args[1])

	default:
		karma, found, err := store.Get(ctx, args[0])
		if err != nil {
			return "", err
		}
		if !found {
			return fmt.Sprintf("%s has no karma yet.", args[0]), nil
		}
		return fmt.Sprintf("%s: %d", args[0], karma), nil
	}
}

func (p *Plugin) top(ctx context.Context, store Store, n int) (string, error) {
	entries, err := store.Top(ctx, n)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No karma yet.", nil
	}

	var b strings.Builder
	b.WriteString("*Karma leaderboard*")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, e.Name, e.Karma)
	}
	return b.String(), nil
}

func (p *Plugin) reasons(ctx context.Context, store Store, name string) (string, error) {
	reasons, err := store.Reasons(ctx, name)
	if err != nil {
		return "", err
	}
	if len(reasons) == 0 {
		return fmt.Sprintf("No reasons recorded for %s.", name), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Why %s has karma*", name)
	for _, r := range reasons {
		emoji := p.upvote
		if r.Change < 0 {
			emoji = p.downvote
		}
		fmt.Fprintf(&b, "\n:%s: %s", emoji, r.Text)
	}
	return b.String(), nil
}

func (p *Plugin) store(deps *dependencies.Dependencies) (Store, bool) {
	cell, ok := dependencies.Get[Store](deps)
	if !ok {
		p.log.Warn("Karma store not registered, skipping")
		return nil, false
	}
	store := cell.Load()
	if store == nil {
		p.log.Warn("Karma store is nil, skipping")
		return nil, false
	}
	return store, true
}
