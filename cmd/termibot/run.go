package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"termibot/pkg/bot"
	"termibot/pkg/config"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
	"termibot/pkg/scheduler"
	"termibot/pkg/version"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 15 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Slack and run the bot",
	Long: `Connect to Slack over Socket Mode and run the bot in the foreground until
interrupted or until Slack asks the app to disconnect.

Examples:
  # Use the default config search paths
  termibot run

  # Use a specific config file
  termibot run -c ./config/termibot.yaml`,
	RunE: runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	app := fx.New(
		config.Module,
		logger.Module,
		bot.Module,

		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config, registry *plugins.Registry, s *scheduler.Scheduler) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					names := make([]string, 0, registry.Len())
					for _, p := range registry.All() {
						names = append(names, p.Name())
					}
					log.Info("termibot started",
						zap.String("version", version.GetVersion()),
						zap.Strings("plugins", names),
						zap.Int("announcements", len(s.Entries())),
						zap.String("send_failure_policy", cfg.Transport.SendFailurePolicy))
					return nil
				},
			})
		}),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("building application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("starting termibot: %w", err)
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down...")
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), stopTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stopping termibot: %w", err)
	}

	if exitCode != 0 {
		return fmt.Errorf("termibot exited with code %d", exitCode)
	}
	return nil
}
