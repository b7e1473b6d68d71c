package socketmode

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultIdleTimeout is how long Next waits without any frame before
	// replacing the connection.
	DefaultIdleTimeout = 15 * time.Second
	// DefaultHandshakeTimeout bounds the websocket handshake.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds ack and pong writes.
	DefaultWriteTimeout = 5 * time.Second
)

// SendFailurePolicy decides what happens when an ack or pong cannot be written.
type SendFailurePolicy int

const (
	// SendFailureFatal makes Next return a *FatalError.
	SendFailureFatal SendFailurePolicy = iota
	// SendFailureReconnect replaces the connection and keeps reading. The
	// unacknowledged frame is dropped; Slack redelivers it.
	SendFailureReconnect
)

func (p SendFailurePolicy) String() string {
	switch p {
	case SendFailureFatal:
		return "fatal"
	case SendFailureReconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("SendFailurePolicy(%d)", int(p))
	}
}

// ParseSendFailurePolicy parses "fatal" or "reconnect". Empty means fatal.
func ParseSendFailurePolicy(s string) (SendFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fatal":
		return SendFailureFatal, nil
	case "reconnect":
		return SendFailureReconnect, nil
	default:
		return SendFailureFatal, fmt.Errorf("unknown send failure policy: %s", s)
	}
}

type options struct {
	idleTimeout      time.Duration
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	sendFailure      SendFailurePolicy
	dialer           *websocket.Dialer
}

func defaultOptions() options {
	return options{
		idleTimeout:      DefaultIdleTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		writeTimeout:     DefaultWriteTimeout,
		sendFailure:      SendFailureFatal,
	}
}

// Option configures a Transport.
type Option func(*options)

// WithIdleTimeout sets the idle timeout. Non-positive values are ignored.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleTimeout = d
		}
	}
}

// WithHandshakeTimeout sets the handshake timeout. Non-positive values are ignored.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithWriteTimeout sets the ack and pong write timeout. Non-positive values
// are ignored.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithSendFailurePolicy sets what a failed ack or pong does.
func WithSendFailurePolicy(p SendFailurePolicy) Option {
	return func(o *options) {
		o.sendFailure = p
	}
}

// WithDialer replaces the websocket dialer. Its HandshakeTimeout is
// overridden by WithHandshakeTimeout.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}
