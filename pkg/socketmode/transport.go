// Package socketmode is the Slack Socket Mode transport: it owns the live
// websocket, answers pings, acknowledges envelopes and replaces the
// connection when it goes quiet.
package socketmode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"termibot/pkg/events"
	"termibot/pkg/logger"
)

// URLSource hands out fresh Socket Mode connection URLs. Each URL is
// single use.
type URLSource interface {
	ConnectURL(ctx context.Context) (string, error)
}

// Stats is a snapshot of transport counters.
type Stats struct {
	Frames     int64
	Acks       int64
	Pings      int64
	Reconnects int64
	Discarded  int64
}

// Transport reads frames from one live connection at a time. Next must not
// be called concurrently; Close may be called from any goroutine.
type Transport struct {
	log    *logger.Logger
	urls   URLSource
	opts   options
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	stale  bool

	// readCtx is the context of the read in progress. Only the goroutine
	// calling Next touches it, including from inside the ping handler.
	readCtx context.Context

	frames     atomic.Int64
	acks       atomic.Int64
	pings      atomic.Int64
	reconnects atomic.Int64
	discarded  atomic.Int64
}

// Dial fetches a connection URL and performs the websocket handshake.
func Dial(ctx context.Context, log *logger.Logger, urls URLSource, opts ...Option) (*Transport, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var dialer websocket.Dialer
	if o.dialer != nil {
		dialer = *o.dialer
	} else {
		dialer = *websocket.DefaultDialer
	}
	dialer.HandshakeTimeout = o.handshakeTimeout

	t := &Transport{
		log:    log.Named("socketmode"),
		urls:   urls,
		opts:   o,
		dialer: &dialer,
	}

	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	t.conn = conn

	t.log.Info("Socket Mode connection established",
		zap.Duration("idle_timeout", o.idleTimeout),
		zap.Stringer("send_failure_policy", o.sendFailure),
	)
	return t, nil
}

// Next returns the next frame the application must act on. Envelope-bearing
// frames are acknowledged before they are returned. Pings, unexpected or
// undecodable frames, idle timeouts and server closes are handled here and
// never surface.
func (t *Transport) Next(ctx context.Context) (events.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, err := t.current(ctx)
		if err != nil {
			return nil, err
		}

		msgType, data, err := t.read(ctx, conn)
		if err != nil {
			if t.isClosed() {
				return nil, ErrClosed
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				// The read deadline was forced into the past, which leaves
				// the connection unusable.
				t.markStale()
				return nil, ctxErr
			}
			if err := t.recover(ctx, conn, err); err != nil {
				return nil, err
			}
			continue
		}

		t.frames.Add(1)
		if msgType != websocket.TextMessage {
			t.discarded.Add(1)
			t.log.Warn("Discarding unexpected frame", zap.Int("message_type", msgType))
			continue
		}

		frame, err := events.DecodeFrame(data)
		if err != nil {
			t.discarded.Add(1)
			t.log.Warn("Discarding unsupported frame",
				zap.Error(err),
				zap.ByteString("frame", truncate(data, 512)),
			)
			continue
		}

		if env, ok := frame.(events.Enveloped); ok {
			if err := t.ack(conn, env.EnvelopeID()); err != nil {
				if err := t.recover(ctx, conn, err); err != nil {
					return nil, err
				}
				continue
			}
		}

		return frame, nil
	}
}

// Close closes the live connection. Next returns ErrClosed afterwards.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}

	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(t.opts.writeTimeout),
	)
	return t.conn.Close()
}

// Stats returns the current counters.
func (t *Transport) Stats() Stats {
	return Stats{
		Frames:     t.frames.Load(),
		Acks:       t.acks.Load(),
		Pings:      t.pings.Load(),
		Reconnects: t.reconnects.Load(),
		Discarded:  t.discarded.Load(),
	}
}

func (t *Transport) connect(ctx context.Context) (*websocket.Conn, error) {
	url, err := t.urls.ConnectURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching connect url: %w", err)
	}

	conn, resp, err := t.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing socket: %w", err)
	}

	conn.SetPingHandler(func(appData string) error {
		t.pings.Add(1)
		if t.readCtx != nil {
			if err := t.readCtx.Err(); err != nil {
				return err
			}
		}
		_ = conn.SetReadDeadline(time.Now().Add(t.opts.idleTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(t.opts.writeTimeout))
		if err != nil {
			return &sendError{op: "pong", err: err}
		}
		return nil
	})
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.opts.idleTimeout))
	})

	return conn, nil
}

func (t *Transport) current(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	closed, stale, conn := t.closed, t.stale, t.conn
	t.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if !stale {
		return conn, nil
	}

	if err := t.reconnect(ctx, conn); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn, nil
}

func (t *Transport) read(ctx context.Context, conn *websocket.Conn) (int, []byte, error) {
	t.readCtx = ctx
	if err := conn.SetReadDeadline(time.Now().Add(t.opts.idleTimeout)); err != nil {
		return 0, nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	return conn.ReadMessage()
}

func (t *Transport) ack(conn *websocket.Conn, envelopeID string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(t.opts.writeTimeout))
	if err := conn.WriteJSON(socketmode.Response{EnvelopeID: envelopeID}); err != nil {
		return &sendError{op: "ack", err: err}
	}
	t.acks.Add(1)
	return nil
}

// recover decides how to continue after conn failed with cause.
func (t *Transport) recover(ctx context.Context, conn *websocket.Conn, cause error) error {
	var sendErr *sendError
	var closeErr *websocket.CloseError
	var netErr net.Error

	switch {
	case errors.As(cause, &sendErr):
		if t.opts.sendFailure == SendFailureFatal {
			return &FatalError{Op: sendErr.op, Err: sendErr.err}
		}
		t.log.Warn("Send failed, reconnecting", zap.String("op", sendErr.op), zap.Error(sendErr.err))
	case errors.As(cause, &closeErr):
		t.log.Info("Server closed connection, reconnecting",
			zap.Int("code", closeErr.Code),
			zap.String("text", closeErr.Text),
		)
	case errors.As(cause, &netErr) && netErr.Timeout():
		t.log.Info("No frame within idle timeout, reconnecting", zap.Duration("idle_timeout", t.opts.idleTimeout))
	default:
		t.log.Warn("Connection failed, reconnecting", zap.Error(cause))
	}

	return t.reconnect(ctx, conn)
}

// reconnect swaps old for a fresh connection. Failure is fatal.
func (t *Transport) reconnect(ctx context.Context, old *websocket.Conn) error {
	fresh, err := t.connect(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		t.log.Error("Reconnect failed", zap.Error(err))
		return &FatalError{Op: "reconnect", Err: err}
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = fresh.Close()
		return ErrClosed
	}
	t.conn = fresh
	t.stale = false
	t.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	t.reconnects.Add(1)
	t.log.Info("Reconnected", zap.Int64("reconnects", t.reconnects.Load()))
	return nil
}

func (t *Transport) markStale() {
	t.mu.Lock()
	t.stale = true
	t.mu.Unlock()
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
