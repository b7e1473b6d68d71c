package bot

import (
	"fmt"

	"termibot/pkg/config"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
	"termibot/pkg/plugins/emojilog"
	"termibot/pkg/plugins/help"
	"termibot/pkg/plugins/karma"
	"termibot/pkg/plugins/songlink"
)

// BuildRegistry registers the built-in plugins enabled in cfg, in a fixed
// order. It does not touch the network.
func BuildRegistry(log *logger.Logger, cfg *config.Config) (*plugins.Registry, error) {
	registry := plugins.NewRegistry(log.Named("plugins"))
	pc := cfg.Plugins

	var enabled []plugins.Plugin
	if pc.Songlink.Enabled {
		enabled = append(enabled, songlink.New(log))
	}
	if pc.Emojilog.Enabled {
		enabled = append(enabled, emojilog.New(log, pc.Emojilog.Channel))
	}
	if pc.Karma.Enabled {
		enabled = append(enabled, karma.New(log, karma.Config{
			UpvoteEmoji:   pc.Karma.UpvoteEmoji,
			DownvoteEmoji: pc.Karma.DownvoteEmoji,
		}))
	}
	if pc.Help.Enabled {
		enabled = append(enabled, help.New(log, registry))
	}

	for _, p := range enabled {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("registering plugin: %w", err)
		}
	}
	return registry, nil
}
