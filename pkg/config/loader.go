package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigPathEnv overrides the config file search.
const ConfigPathEnv = "TERMIBOT_CONFIG_FILE"

// EnvPrefix prefixes every environment override, e.g. TERMIBOT_SLACK_BOT_TOKEN.
const EnvPrefix = "TERMIBOT"

// Loader handles configuration loading with Viper.
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetConfigName("config")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".termibot"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	return &Loader{viper: v}
}

// setDefaults registers every scalar key so AutomaticEnv applies to keys
// missing from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("slack.bot_token", cfg.Slack.BotToken)
	v.SetDefault("slack.app_token", cfg.Slack.AppToken)
	v.SetDefault("slack.api_url", cfg.Slack.APIURL)

	v.SetDefault("transport.idle_timeout_seconds", cfg.Transport.IdleTimeoutSeconds)
	v.SetDefault("transport.handshake_timeout_seconds", cfg.Transport.HandshakeTimeoutSeconds)
	v.SetDefault("transport.write_timeout_seconds", cfg.Transport.WriteTimeoutSeconds)
	v.SetDefault("transport.send_failure_policy", cfg.Transport.SendFailurePolicy)

	v.SetDefault("ratelimit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst", cfg.RateLimit.Burst)

	v.SetDefault("logger.level", cfg.Logger.Level)
	v.SetDefault("logger.output_path", cfg.Logger.OutputPath)
	v.SetDefault("logger.max_size", cfg.Logger.MaxSize)
	v.SetDefault("logger.max_backups", cfg.Logger.MaxBackups)
	v.SetDefault("logger.max_age", cfg.Logger.MaxAge)
	v.SetDefault("logger.compress", cfg.Logger.Compress)
	v.SetDefault("logger.development", cfg.Logger.Development)

	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.prefix", cfg.Redis.Prefix)

	v.SetDefault("plugins.songlink.enabled", cfg.Plugins.Songlink.Enabled)
	v.SetDefault("plugins.emojilog.enabled", cfg.Plugins.Emojilog.Enabled)
	v.SetDefault("plugins.emojilog.channel", cfg.Plugins.Emojilog.Channel)
	v.SetDefault("plugins.karma.enabled", cfg.Plugins.Karma.Enabled)
	v.SetDefault("plugins.karma.upvote_emoji", cfg.Plugins.Karma.UpvoteEmoji)
	v.SetDefault("plugins.karma.downvote_emoji", cfg.Plugins.Karma.DownvoteEmoji)
	v.SetDefault("plugins.help.enabled", cfg.Plugins.Help.Enabled)
}

// Load loads the configuration from file and environment variables.
// If configPath is empty, TERMIBOT_CONFIG_FILE is used, then the default
// search paths. A missing config file is not an error when no path was
// given: defaults and the environment apply.
func (l *Loader) Load(configPath string) (*Config, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}

	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		l.viper.SetConfigFile(abs)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return l.Decode()
}

// Decode builds a Config from what viper currently holds, without reading
// the file again.
func (l *Loader) Decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// GetConfigPath returns the path of the loaded config file, empty when
// running on defaults.
func (l *Loader) GetConfigPath() string {
	return l.viper.ConfigFileUsed()
}

// GetConfigHome returns the default config directory.
func GetConfigHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".termibot"), nil
}
