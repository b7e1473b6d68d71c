// Package plugins holds the plugin contract and the registry that routes
// commands and raw events to registered plugins.
package plugins

import (
	"context"

	"termibot/pkg/actions"
	"termibot/pkg/dependencies"
	"termibot/pkg/events"
	"termibot/pkg/processor"
)

// Plugin is a unit of bot behavior.
//
// Subscriptions is called once, at registration. OnCommand is called for
// commands matching at least one subscription; OnEvent is called for every
// raw event. Both run concurrently with other plugins and must not block
// indefinitely. A plugin that fails internally logs and returns no actions.
type Plugin interface {
	Name() string
	Subscriptions() []Subscription
	OnCommand(ctx context.Context, cmd processor.Command, deps *dependencies.Dependencies) []actions.Action
	OnEvent(ctx context.Context, ev events.Event, deps *dependencies.Dependencies) []actions.Action
}

// Base provides no-op defaults for every Plugin method except Name.
// Embed it and override what the plugin needs.
type Base struct{}

// Subscriptions returns no subscriptions.
func (Base) Subscriptions() []Subscription { return nil }

// OnCommand returns no actions.
func (Base) OnCommand(context.Context, processor.Command, *dependencies.Dependencies) []actions.Action {
	return nil
}

// OnEvent returns no actions.
func (Base) OnEvent(context.Context, events.Event, *dependencies.Dependencies) []actions.Action {
	return nil
}
