// Package slackapi is the outbound Slack Web API collaborator: bot identity,
// Socket Mode connection URLs and message posting, all behind one rate limiter.
package slackapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"termibot/pkg/logger"
	"termibot/pkg/processor"
)

const (
	// DefaultRequestsPerSecond keeps outbound calls under Slack's tier limits.
	DefaultRequestsPerSecond = 8
	// DefaultBurst allows a short burst of posts for one frame's actions.
	DefaultBurst = 1
)

// Config configures the client.
type Config struct {
	BotToken string
	AppToken string
	// APIURL overrides the Web API base URL. It must end with a slash.
	APIURL            string
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// Client wraps slack-go with a shared rate limiter.
type Client struct {
	log     *logger.Logger
	api     *slack.Client
	limiter *rate.Limiter
}

// New creates a client. Both tokens are required.
func New(log *logger.Logger, cfg Config) (*Client, error) {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return nil, fmt.Errorf("slack bot_token and app_token are required")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, fmt.Errorf("slack app_token must be an app-level token (xapp-...)")
	}

	opts := []slack.Option{slack.OptionAppLevelToken(cfg.AppToken)}
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, slack.OptionHTTPClient(cfg.HTTPClient))
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &Client{
		log:     log.Named("slackapi"),
		api:     slack.New(cfg.BotToken, opts...),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Identity fetches the bot's user id and name via auth.test.
func (c *Client) Identity(ctx context.Context) (processor.Identity, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return processor.Identity{}, err
	}

	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return processor.Identity{}, fmt.Errorf("slack auth test failed: %w", err)
	}

	c.log.Info("Authenticated",
		zap.String("bot_user_id", resp.UserID),
		zap.String("bot_name", resp.User),
		zap.String("team", resp.Team),
	)
	return processor.Identity{ID: resp.UserID, Name: resp.User}, nil
}

// ConnectURL opens a Socket Mode connection slot and returns its URL.
func (c *Client) ConnectURL(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	_, url, err := c.api.StartSocketModeContext(ctx)
	if err != nil {
		return "", fmt.Errorf("opening socket mode connection: %w", err)
	}
	if url == "" {
		return "", fmt.Errorf("opening socket mode connection: empty url")
	}
	return url, nil
}

// PostMessage posts text to channel.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	return c.post(ctx, channel, "", text)
}

// PostReply posts text to channel as a reply in the thread rooted at threadTS.
func (c *Client) PostReply(ctx context.Context, channel, threadTS, text string) error {
	if threadTS == "" {
		return fmt.Errorf("reply to channel %s: thread timestamp is required", channel)
	}
	return c.post(ctx, channel, threadTS, text)
}

func (c *Client) post(ctx context.Context, channel, threadTS, text string) error {
	if channel == "" {
		return fmt.Errorf("channel is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	if _, _, err := c.api.PostMessageContext(ctx, channel, opts...); err != nil {
		return fmt.Errorf("sending slack message: %w", err)
	}

	c.log.Debug("Sent Slack message",
		zap.String("channel_id", channel),
		zap.String("thread_ts", threadTS),
	)
	return nil
}
