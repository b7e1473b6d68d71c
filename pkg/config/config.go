// Package config provides configuration management for termibot.
// It uses Viper for loading with support for:
// - Multiple formats (JSON, YAML, TOML)
// - Environment variables (TERMIBOT_ prefix)
// - Default values
package config

import (
	"time"

	"termibot/pkg/scheduler"
)

// Config represents the complete termibot configuration.
type Config struct {
	Slack         SlackConfig              `mapstructure:"slack" json:"slack"`
	Transport     TransportConfig          `mapstructure:"transport" json:"transport"`
	RateLimit     RateLimitConfig          `mapstructure:"ratelimit" json:"ratelimit"`
	Logger        LoggerConfig             `mapstructure:"logger" json:"logger"`
	Redis         RedisConfig              `mapstructure:"redis" json:"redis"`
	Plugins       PluginsConfig            `mapstructure:"plugins" json:"plugins"`
	Announcements []scheduler.Announcement `mapstructure:"announcements" json:"announcements"`
}

// SlackConfig holds the Slack app credentials.
type SlackConfig struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token"`
	AppToken string `mapstructure:"app_token" json:"app_token"` // xapp-, Socket Mode only
	APIURL   string `mapstructure:"api_url" json:"api_url"`     // empty means slack.com
}

// TransportConfig tunes the Socket Mode connection.
type TransportConfig struct {
	IdleTimeoutSeconds      int    `mapstructure:"idle_timeout_seconds" json:"idle_timeout_seconds"`
	HandshakeTimeoutSeconds int    `mapstructure:"handshake_timeout_seconds" json:"handshake_timeout_seconds"`
	WriteTimeoutSeconds     int    `mapstructure:"write_timeout_seconds" json:"write_timeout_seconds"`
	SendFailurePolicy       string `mapstructure:"send_failure_policy" json:"send_failure_policy"` // fatal or reconnect
}

// IdleTimeout returns the idle timeout as a duration.
func (t TransportConfig) IdleTimeout() time.Duration {
	return time.Duration(t.IdleTimeoutSeconds) * time.Second
}

// HandshakeTimeout returns the handshake timeout as a duration.
func (t TransportConfig) HandshakeTimeout() time.Duration {
	return time.Duration(t.HandshakeTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (t TransportConfig) WriteTimeout() time.Duration {
	return time.Duration(t.WriteTimeoutSeconds) * time.Second
}

// RateLimitConfig throttles outbound Web API calls.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second"`
	Burst             int     `mapstructure:"burst" json:"burst"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	OutputPath  string `mapstructure:"output_path" json:"output_path"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress"`
	Development bool   `mapstructure:"development" json:"development"`
}

// RedisConfig configures the karma store. An empty Addr keeps karma in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
	Prefix   string `mapstructure:"prefix" json:"prefix"`
}

// PluginsConfig enables and configures the built-in plugins.
type PluginsConfig struct {
	Songlink ToggleConfig   `mapstructure:"songlink" json:"songlink"`
	Emojilog EmojilogConfig `mapstructure:"emojilog" json:"emojilog"`
	Karma    KarmaConfig    `mapstructure:"karma" json:"karma"`
	Help     ToggleConfig   `mapstructure:"help" json:"help"`
}

// ToggleConfig is for plugins with nothing to configure.
type ToggleConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// EmojilogConfig for the emoji changelog plugin.
type EmojilogConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Channel string `mapstructure:"channel" json:"channel"`
}

// KarmaConfig for the karma plugin.
type KarmaConfig struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled"`
	UpvoteEmoji   string `mapstructure:"upvote_emoji" json:"upvote_emoji"`
	DownvoteEmoji string `mapstructure:"downvote_emoji" json:"downvote_emoji"`
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			IdleTimeoutSeconds:      15,
			HandshakeTimeoutSeconds: 10,
			WriteTimeoutSeconds:     5,
			SendFailurePolicy:       "fatal",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 8,
			Burst:             1,
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Redis: RedisConfig{
			Prefix: "termibot:",
		},
		Plugins: PluginsConfig{
			Songlink: ToggleConfig{Enabled: true},
			Emojilog: EmojilogConfig{Enabled: true, Channel: "#general"},
			Karma: KarmaConfig{
				Enabled:       true,
				UpvoteEmoji:   "upboat",
				DownvoteEmoji: "downboat",
			},
			Help: ToggleConfig{Enabled: true},
		},
		Announcements: []scheduler.Announcement{},
	}
}

// Redacted returns a copy with secrets masked, for logging and printing.
func (c *Config) Redacted() Config {
	out := *c
	out.Slack.BotToken = mask(c.Slack.BotToken)
	out.Slack.AppToken = mask(c.Slack.AppToken)
	out.Redis.Password = mask(c.Redis.Password)
	out.Announcements = append([]scheduler.Announcement(nil), c.Announcements...)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:5] + "****"
}
