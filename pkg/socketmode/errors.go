package socketmode

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("socketmode: transport closed")

// FatalError is a transport failure the transport does not recover from:
// a reconnect that could not get a URL or complete the handshake, or an
// ack or pong that could not be sent under SendFailureFatal.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("socketmode: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// sendError marks a failed ack or pong write so Next can apply the
// configured SendFailurePolicy.
type sendError struct {
	op  string
	err error
}

func (e *sendError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *sendError) Unwrap() error {
	return e.err
}
