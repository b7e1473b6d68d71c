package config

import (
	"fmt"
	"net/url"
	"strings"

	"termibot/pkg/socketmode"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether field failed validation.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateSlack(&cfg.Slack)
	v.validateTransport(&cfg.Transport)
	v.validateRateLimit(&cfg.RateLimit)
	v.validateLogger(&cfg.Logger)
	v.validateRedis(&cfg.Redis)
	v.validatePlugins(&cfg.Plugins)
	v.validateAnnouncements(cfg)

	if len(v.errors) > 0 {
		return v.errors
	}

	return nil
}

func (v *Validator) validateSlack(cfg *SlackConfig) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		v.addError("slack.bot_token", "bot token is required")
	}

	switch {
	case strings.TrimSpace(cfg.AppToken) == "":
		v.addError("slack.app_token", "app token is required")
	case !strings.HasPrefix(cfg.AppToken, "xapp-"):
		v.addError("slack.app_token", "app token must start with xapp-")
	}

	if cfg.APIURL != "" {
		u, err := url.Parse(cfg.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			v.addError("slack.api_url", "api_url must be an absolute http(s) URL")
		}
	}
}

func (v *Validator) validateTransport(cfg *TransportConfig) {
	if cfg.IdleTimeoutSeconds < 1 {
		v.addError("transport.idle_timeout_seconds", "idle timeout must be at least 1 second")
	}
	if cfg.HandshakeTimeoutSeconds < 1 {
		v.addError("transport.handshake_timeout_seconds", "handshake timeout must be at least 1 second")
	}
	if cfg.WriteTimeoutSeconds < 1 {
		v.addError("transport.write_timeout_seconds", "write timeout must be at least 1 second")
	}
	if _, err := socketmode.ParseSendFailurePolicy(cfg.SendFailurePolicy); err != nil {
		v.addError("transport.send_failure_policy", "send_failure_policy must be one of: fatal, reconnect")
	}
}

func (v *Validator) validateRateLimit(cfg *RateLimitConfig) {
	if cfg.RequestsPerSecond <= 0 {
		v.addError("ratelimit.requests_per_second", "requests_per_second must be positive")
	}
	if cfg.Burst < 1 {
		v.addError("ratelimit.burst", "burst must be at least 1")
	}
}

func (v *Validator) validateLogger(cfg *LoggerConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		v.addError("logger.level", "level must be one of: debug, info, warn, error, fatal")
	}

	if cfg.OutputPath != "" {
		if cfg.MaxSize < 1 {
			v.addError("logger.max_size", "max_size must be at least 1 MB")
		}
		if cfg.MaxBackups < 0 {
			v.addError("logger.max_backups", "max_backups must be non-negative")
		}
		if cfg.MaxAge < 0 {
			v.addError("logger.max_age", "max_age must be non-negative")
		}
	}
}

func (v *Validator) validateRedis(cfg *RedisConfig) {
	if cfg.DB < 0 {
		v.addError("redis.db", "db must be non-negative")
	}
}

func (v *Validator) validatePlugins(cfg *PluginsConfig) {
	if cfg.Emojilog.Enabled && strings.TrimSpace(cfg.Emojilog.Channel) == "" {
		v.addError("plugins.emojilog.channel", "channel is required when emojilog is enabled")
	}
	if cfg.Karma.Enabled {
		if strings.ContainsAny(strings.Trim(cfg.Karma.UpvoteEmoji, ":"), " :") {
			v.addError("plugins.karma.upvote_emoji", "emoji name cannot contain spaces or colons")
		}
		if strings.ContainsAny(strings.Trim(cfg.Karma.DownvoteEmoji, ":"), " :") {
			v.addError("plugins.karma.downvote_emoji", "emoji name cannot contain spaces or colons")
		}
	}
}

func (v *Validator) validateAnnouncements(cfg *Config) {
	seen := make(map[string]bool, len(cfg.Announcements))
	for i, a := range cfg.Announcements {
		field := fmt.Sprintf("announcements[%d]", i)
		if err := a.Validate(); err != nil {
			v.addError(field, err.Error())
			continue
		}
		if seen[a.Name] {
			v.addError(field, fmt.Sprintf("duplicate announcement name %q", a.Name))
		}
		seen[a.Name] = true
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateConfig is a convenience function to validate a configuration.
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.Validate(cfg)
}
