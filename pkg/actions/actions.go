// Package actions defines the outbound effects plugins ask for and resolves
// them against the Slack Web API.
package actions

import "fmt"

// Action is an outbound effect returned by a plugin.
// Implementations: MessageChannel, ReplyToThread.
type Action interface {
	fmt.Stringer
	action()
}

// MessageChannel posts Message to Channel.
type MessageChannel struct {
	Channel string
	Message string
}

func (MessageChannel) action() {}

func (a MessageChannel) String() string {
	return fmt.Sprintf("message_channel(%s)", a.Channel)
}

// ReplyToThread posts Message to Channel as a reply anchored on ThreadID,
// the timestamp of the parent message.
type ReplyToThread struct {
	Channel  string
	ThreadID string
	Message  string
}

func (ReplyToThread) action() {}

func (a ReplyToThread) String() string {
	return fmt.Sprintf("reply_to_thread(%s/%s)", a.Channel, a.ThreadID)
}
