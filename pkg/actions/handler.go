package actions

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedAction is returned for actions the handler cannot resolve.
var ErrUnsupportedAction = errors.New("unsupported action")

// Poster is the outbound message API. Implementations must turn Slack's
// "ok": false responses into errors.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string) error
	PostReply(ctx context.Context, channel, threadTS, text string) error
}

// ResolveError reports a failed action.
type ResolveError struct {
	Action Action
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving %v: %v", e.Action, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Handler resolves actions one at a time. It is safe for concurrent use when
// the Poster is.
type Handler struct {
	poster Poster
}

// NewHandler creates a handler posting through poster.
func NewHandler(poster Poster) *Handler {
	return &Handler{poster: poster}
}

// Handle resolves a single action. Failures are returned as *ResolveError and
// never affect other actions.
func (h *Handler) Handle(ctx context.Context, action Action) error {
	var err error
	switch a := action.(type) {
	case MessageChannel:
		err = h.poster.PostMessage(ctx, a.Channel, a.Message)
	case ReplyToThread:
		err = h.poster.PostReply(ctx, a.Channel, a.ThreadID, a.Message)
	default:
		err = ErrUnsupportedAction
	}
	if err != nil {
		return &ResolveError{Action: action, Err: err}
	}
	return nil
}
