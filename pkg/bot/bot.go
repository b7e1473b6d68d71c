// Package bot is the runtime loop: it reads frames from the transport,
// turns messages into commands, fans every event out to the plugins and
// resolves the actions they return.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"termibot/pkg/actions"
	"termibot/pkg/dependencies"
	"termibot/pkg/events"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
	"termibot/pkg/processor"
)

// FrameSource yields inbound frames, already acknowledged.
type FrameSource interface {
	Next(ctx context.Context) (events.Frame, error)
}

// IdentitySource reports the bot's own identity.
type IdentitySource interface {
	Identity(ctx context.Context) (processor.Identity, error)
}

// ActionHandler resolves one action.
type ActionHandler interface {
	Handle(ctx context.Context, action actions.Action) error
}

// Bot drives one frame at a time through processing, dispatch and resolution.
type Bot struct {
	log      *logger.Logger
	source   FrameSource
	ident    IdentitySource
	registry *plugins.Registry
	deps     *dependencies.Dependencies
	handler  ActionHandler
}

// New creates a bot. A nil deps is treated as an empty container.
func New(
	log *logger.Logger,
	source FrameSource,
	ident IdentitySource,
	registry *plugins.Registry,
	deps *dependencies.Dependencies,
	handler ActionHandler,
) *Bot {
	if deps == nil {
		deps = dependencies.Empty()
	}
	return &Bot{
		log:      log.Named("bot"),
		source:   source,
		ident:    ident,
		registry: registry,
		deps:     deps,
		handler:  handler,
	}
}

// Run fetches the bot identity once and loops until the server asks to
// disconnect, ctx is cancelled, or the transport fails.
func (b *Bot) Run(ctx context.Context) error {
	identity, err := b.ident.Identity(ctx)
	if err != nil {
		return fmt.Errorf("fetching bot identity: %w", err)
	}
	proc := processor.New(identity)

	b.log.Info("Bot running",
		zap.String("bot_user_id", identity.ID),
		zap.String("bot_name", identity.Name),
		zap.Int("plugins", b.registry.Len()),
	)

	for {
		frame, err := b.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.log.Info("Bot stopped")
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		if stop := b.handleFrame(ctx, proc, frame); stop {
			return nil
		}
	}
}

// handleFrame reports whether the loop should stop.
func (b *Bot) handleFrame(ctx context.Context, proc *processor.Processor, frame events.Frame) bool {
	switch f := frame.(type) {
	case events.Hello:
		b.log.Debug("Hello received")
	case events.Disconnect:
		b.log.Info("Disconnect requested", zap.String("reason", f.Reason))
		return true
	case events.Interactive:
		b.log.Warn("Interactive payloads are not supported", zap.String("envelope_id", f.Envelope))
	case events.SlashCommand:
		b.log.Warn("Slash commands are not supported", zap.String("envelope_id", f.Envelope))
	case events.EventFrame:
		b.dispatch(ctx, proc, f)
	default:
		b.log.Warn("Unhandled frame", zap.String("frame_type", frame.FrameType()))
	}
	return false
}

func (b *Bot) dispatch(ctx context.Context, proc *processor.Processor, f events.EventFrame) {
	if f.Event == nil {
		b.log.Warn("Event frame without event", zap.String("envelope_id", f.Envelope))
		return
	}

	log := b.log.WithFields(
		zap.String("dispatch_id", uuid.NewString()),
		zap.String("envelope_id", f.Envelope),
		zap.String("event_type", f.Event.Type()),
	)

	acts := b.collect(ctx, log, proc, f.Event)
	if len(acts) == 0 {
		return
	}
	b.resolve(ctx, log, acts)
}

// collect runs matching command handlers and every raw event handler
// concurrently and flattens their actions. Order is unspecified.
func (b *Bot) collect(ctx context.Context, log *logger.Logger, proc *processor.Processor, ev events.Event) []actions.Action {
	var (
		mu  sync.Mutex
		out []actions.Action
		g   errgroup.Group
	)

	gather := func(fn func() []actions.Action) {
		g.Go(func() error {
			res := fn()
			if len(res) == 0 {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, a := range res {
				if a != nil {
					out = append(out, a)
				}
			}
			return nil
		})
	}

	if cmd, ok := proc.Process(ev); ok {
		matched := b.registry.Match(cmd.Command)
		log.Debug("Command received",
			zap.String("command", cmd.Command),
			zap.Int("args", len(cmd.Args)),
			zap.String("channel", cmd.Channel),
			zap.Int("matched_plugins", len(matched)),
		)
		for _, p := range matched {
			gather(func() []actions.Action {
				return p.OnCommand(ctx, cmd, b.deps)
			})
		}
	}

	for _, p := range b.registry.All() {
		gather(func() []actions.Action {
			return p.OnEvent(ctx, ev, b.deps)
		})
	}

	_ = g.Wait()
	return out
}

// resolve hands every action to the handler concurrently. Failures are
// logged one by one and never stop the others.
func (b *Bot) resolve(ctx context.Context, log *logger.Logger, acts []actions.Action) {
	var g errgroup.Group
	for _, a := range acts {
		g.Go(func() error {
			if err := b.handler.Handle(ctx, a); err != nil {
				log.Error("Action failed", zap.Stringer("action", a), zap.Error(err))
				return nil
			}
			log.Debug("Action resolved", zap.Stringer("action", a))
			return nil
		})
	}
	_ = g.Wait()
}
