package events

import "encoding/json"

// Event is a raw Events API event. Only *Message is interpreted by the
// runtime; every other kind is passed through to plugins as is.
type Event interface {
	Type() string
}

// Event type tags.
const (
	TypeMessage      = "message"
	TypeEmojiChanged = "emoji_changed"
)

// Message is a chat message event. Empty string fields mean the field was
// absent on the wire.
type Message struct {
	// ID is the message timestamp, which Slack uses as the message identity
	// and as the thread anchor for replies.
	ID          string
	Text        string
	User        string
	Channel     string
	ChannelType string
	ThreadTS    string
	Subtype     string
	BotID       string
}

// Type implements Event.
func (*Message) Type() string { return TypeMessage }

// Emoji change subtypes.
const (
	EmojiAdd    = "add"
	EmojiRemove = "remove"
	EmojiRename = "rename"
)

// EmojiChanged reports a custom emoji being added, removed or renamed.
type EmojiChanged struct {
	ID      string
	Subtype string
	Name    string
	Names   []string
	OldName string
	NewName string
	Value   string
}

// Type implements Event.
func (*EmojiChanged) Type() string { return TypeEmojiChanged }

// Opaque is any other event kind, kept verbatim for plugins that want raw
// access.
type Opaque struct {
	Kind string
	Raw  json.RawMessage
}

// Type implements Event.
func (o *Opaque) Type() string { return o.Kind }
