// Package main is the entry point for the termibot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"termibot/pkg/config"
	"termibot/pkg/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "termibot",
	Short: "termibot - a pluggable Slack Socket Mode bot",
	Long: `termibot connects to Slack over Socket Mode and routes messages and events
to its plugins: song.link rewriting, an emoji changelog, karma and help.

Configuration is read from config.{json,yaml,toml} in ~/.termibot, the current
directory or ./config, and can be overridden with TERMIBOT_* environment
variables (for example TERMIBOT_SLACK_BOT_TOKEN).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			// The config module reads the path from the environment.
			_ = os.Setenv(config.ConfigPathEnv, configPath)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
