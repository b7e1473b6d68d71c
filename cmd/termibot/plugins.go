package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"termibot/pkg/bot"
	"termibot/pkg/config"
	"termibot/pkg/logger"
	"termibot/pkg/plugins"
)

var pluginsOutput string

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List enabled plugins and their subscriptions",
	Long: `List the plugins enabled by the configuration and the commands they
subscribe to. Does not connect to Slack.

Examples:
  termibot plugins
  termibot plugins --output yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader().Load("")
		if err != nil {
			return err
		}

		registry, err := bot.BuildRegistry(logger.NewNop(), cfg)
		if err != nil {
			return err
		}

		return writePlugins(cmd.OutOrStdout(), registry.Info(), pluginsOutput)
	},
}

func init() {
	pluginsCmd.Flags().StringVarP(&pluginsOutput, "output", "o", "text", "output format: text or yaml")
}

func writePlugins(w io.Writer, infos []plugins.PluginInfo, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return fmt.Errorf("encoding plugins: %w", err)
		}
		return enc.Close()

	case "text", "":
		if len(infos) == 0 {
			_, err := fmt.Fprintln(w, "No plugins enabled.")
			return err
		}
		for _, info := range infos {
			fmt.Fprintln(w, info.Name)
			if len(info.Subscriptions) == 0 {
				fmt.Fprintln(w, "  (events only)")
				continue
			}
			for _, s := range info.Subscriptions {
				if s.Description != "" {
					fmt.Fprintf(w, "  %s  %s\n", s.Pattern, s.Description)
				} else {
					fmt.Fprintf(w, "  %s\n", s.Pattern)
				}
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown output format %q (want text or yaml)", format)
	}
}
