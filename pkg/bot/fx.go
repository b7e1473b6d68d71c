package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"termibot/pkg/actions"
	"termibot/pkg/config"
	"termibot/pkg/dependencies"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
	"termibot/pkg/plugins/karma"
	"termibot/pkg/scheduler"
	"termibot/pkg/slackapi"
	"termibot/pkg/socketmode"
)

const storeConnectTimeout = 10 * time.Second

// Module is the fx module for the bot runtime. It expects *config.Config and
// *logger.Logger from the config and logger modules.
var Module = fx.Module("bot",
	fx.Provide(
		ProvideSlackClient,
		ProvideRegistry,
		ProvideKarmaStore,
		ProvideDependencies,
		ProvideActionHandler,
		ProvideScheduler,
		NewRunner,
	),
	fx.Invoke(func(*Runner, *scheduler.Scheduler) {}),
)

// ProvideSlackClient creates the Web API client.
func ProvideSlackClient(log *logger.Logger, cfg *config.Config) (*slackapi.Client, error) {
	return slackapi.New(log, slackapi.Config{
		BotToken:          cfg.Slack.BotToken,
		AppToken:          cfg.Slack.AppToken,
		APIURL:            cfg.Slack.APIURL,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
}

// ProvideRegistry registers the enabled plugins.
func ProvideRegistry(log *logger.Logger, cfg *config.Config) (*plugins.Registry, error) {
	return BuildRegistry(log, cfg)
}

// ProvideKarmaStore opens the karma store when the karma plugin is enabled.
// It returns nil otherwise.
func ProvideKarmaStore(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) (karma.Store, error) {
	if !cfg.Plugins.Karma.Enabled {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()

	store, err := karma.NewStore(ctx, log, karma.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("opening karma store: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// ProvideDependencies freezes the services plugins can look up.
func ProvideDependencies(store karma.Store) *dependencies.Dependencies {
	b := dependencies.NewBuilder()
	if store != nil {
		dependencies.Add(b, store)
	}
	return b.Build()
}

// ProvideActionHandler resolves actions through the Web API client.
func ProvideActionHandler(client *slackapi.Client) *actions.Handler {
	return actions.NewHandler(client)
}

// SchedulerParams are the inputs of ProvideScheduler. The watcher is
// optional; without it announcements are fixed at startup.
type SchedulerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Log       *logger.Logger
	Config    *config.Config
	Handler   *actions.Handler
	Watcher   *config.Watcher `optional:"true"`
}

// ProvideScheduler schedules the configured announcements and keeps them in
// step with config file changes.
func ProvideScheduler(p SchedulerParams) (*scheduler.Scheduler, error) {
	s := scheduler.New(p.Log, p.Handler)
	for _, a := range p.Config.Announcements {
		if err := s.Add(a); err != nil {
			return nil, err
		}
	}

	if p.Watcher != nil {
		p.Watcher.AddHandler(reconcileAnnouncements(s))
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return s, nil
}

// reconcileAnnouncements applies the announcements of a reloaded config.
// Everything else in the file takes effect on restart.
func reconcileAnnouncements(s *scheduler.Scheduler) config.ChangeHandler {
	return func(cfg *config.Config) error {
		return s.Reconcile(cfg.Announcements)
	}
}

// Runner connects the transport on start and runs the bot in the
// background. When Run ends on its own the application is shut down, with
// exit code 1 if it failed.
type Runner struct {
	log        *logger.Logger
	cfg        *config.Config
	client     *slackapi.Client
	registry   *plugins.Registry
	deps       *dependencies.Dependencies
	handler    *actions.Handler
	shutdowner fx.Shutdowner

	transport *socketmode.Transport
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRunner creates the runner and hooks it into the lifecycle.
func NewRunner(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
	client *slackapi.Client,
	registry *plugins.Registry,
	deps *dependencies.Dependencies,
	handler *actions.Handler,
	shutdowner fx.Shutdowner,
) *Runner {
	r := &Runner{
		log:        log,
		cfg:        cfg,
		client:     client,
		registry:   registry,
		deps:       deps,
		handler:    handler,
		shutdowner: shutdowner,
	}

	lc.Append(fx.Hook{
		OnStart: r.Start,
		OnStop:  r.Stop,
	})
	return r
}

// Start dials Socket Mode and starts the run loop.
func (r *Runner) Start(ctx context.Context) error {
	policy, err := socketmode.ParseSendFailurePolicy(r.cfg.Transport.SendFailurePolicy)
	if err != nil {
		return err
	}

	transport, err := socketmode.Dial(ctx, r.log, r.client,
		socketmode.WithIdleTimeout(r.cfg.Transport.IdleTimeout()),
		socketmode.WithHandshakeTimeout(r.cfg.Transport.HandshakeTimeout()),
		socketmode.WithWriteTimeout(r.cfg.Transport.WriteTimeout()),
		socketmode.WithSendFailurePolicy(policy),
	)
	if err != nil {
		return fmt.Errorf("connecting to Socket Mode: %w", err)
	}
	r.transport = transport

	b := New(r.log, transport, r.client, r.registry, r.deps, r.handler)

	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		err := b.Run(runCtx)
		if runCtx.Err() != nil {
			return
		}

		if err != nil {
			fields := []zap.Field{zap.Error(err)}
			var fatal *socketmode.FatalError
			if errors.As(err, &fatal) {
				fields = append(fields, zap.String("op", fatal.Op))
			}
			r.log.Error("Bot stopped", fields...)
			_ = r.shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		r.log.Info("Server requested disconnect, shutting down")
		_ = r.shutdowner.Shutdown()
	}()

	return nil
}

// Stop cancels the run loop, waits for the frame in flight and closes the
// transport.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	select {
	case <-r.done:
	case <-ctx.Done():
		r.log.Warn("Run loop did not stop in time")
	}

	stats := r.transport.Stats()
	r.log.Info("Socket Mode connection closed",
		zap.Int64("frames", stats.Frames),
		zap.Int64("acks", stats.Acks),
		zap.Int64("reconnects", stats.Reconnects),
		zap.Int64("discarded", stats.Discarded),
	)

	return r.transport.Close()
}
