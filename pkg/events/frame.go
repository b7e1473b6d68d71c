// Package events defines the inbound Socket Mode frames and the raw events
// they carry, along with their wire decoding.
package events

// Frame is one classified inbound Socket Mode frame.
// Implementations: Hello, Disconnect, EventFrame, Interactive, SlashCommand.
type Frame interface {
	FrameType() string
}

// Enveloped is implemented by frames that must be acknowledged by echoing
// their envelope id back on the connection.
type Enveloped interface {
	Frame
	EnvelopeID() string
}

// Frame type tags as they appear on the wire.
const (
	FrameHello        = "hello"
	FrameDisconnect   = "disconnect"
	FrameEventsAPI    = "events_api"
	FrameInteractive  = "interactive"
	FrameSlashCommand = "slash_commands"
)

// Hello is sent once by the server after the handshake.
type Hello struct{}

// FrameType implements Frame.
func (Hello) FrameType() string { return FrameHello }

// Disconnect asks the client to stop using the connection.
type Disconnect struct {
	Reason string
}

// FrameType implements Frame.
func (Disconnect) FrameType() string { return FrameDisconnect }

// EventFrame carries one Events API event.
type EventFrame struct {
	Envelope string
	Event    Event
}

// FrameType implements Frame.
func (EventFrame) FrameType() string { return FrameEventsAPI }

// EnvelopeID implements Enveloped.
func (f EventFrame) EnvelopeID() string { return f.Envelope }

// Interactive is an interactivity payload (buttons, modals). Acknowledged
// but not routed.
type Interactive struct {
	Envelope string
}

// FrameType implements Frame.
func (Interactive) FrameType() string { return FrameInteractive }

// EnvelopeID implements Enveloped.
func (f Interactive) EnvelopeID() string { return f.Envelope }

// SlashCommand is a slash command invocation. Acknowledged but not routed.
type SlashCommand struct {
	Envelope string
}

// FrameType implements Frame.
func (SlashCommand) FrameType() string { return FrameSlashCommand }

// EnvelopeID implements Enveloped.
func (f SlashCommand) EnvelopeID() string { return f.Envelope }
