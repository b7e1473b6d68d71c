// Package processor turns raw message events that address the bot into
// structured commands.
package processor

import (
	"strings"

	"termibot/pkg/events"
)

// Identity is the bot's own platform identity, fetched once at startup.
type Identity struct {
	// ID is the bot user id, as used in <@ID> mentions.
	ID string
	// Name is the bot's display name.
	Name string
}

// Command is a message that directly addressed the bot, split into a command
// word and its arguments.
type Command struct {
	// Command is the first word after the address, lowercased.
	Command string
	// Args are the remaining words with their case preserved.
	Args []string
	// RawArgs is Args joined by single spaces.
	RawArgs string
	Channel string
	User    string
}

// Processor is stateless apart from the identity it matches against.
type Processor struct {
	identity Identity
}

// New creates a processor for the given bot identity.
func New(identity Identity) *Processor {
	return &Processor{identity: identity}
}

// Identity returns the identity the processor matches against.
func (p *Processor) Identity() Identity {
	return p.identity
}

// Process returns the command carried by ev, or false when ev is not a
// message, does not address the bot, or addresses it with nothing after.
func (p *Processor) Process(ev events.Event) (Command, bool) {
	msg, ok := ev.(*events.Message)
	if !ok || msg == nil || msg.Text == "" {
		return Command{}, false
	}

	rest, addressed := p.stripAddress(strings.TrimSpace(msg.Text))
	if !addressed {
		return Command{}, false
	}

	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return Command{}, false
	}

	args := append([]string(nil), parts[1:]...)
	if args == nil {
		args = []string{}
	}

	channel := msg.Channel
	if channel == "" {
		// Direct messages may only carry the channel type.
		channel = msg.ChannelType
	}

	return Command{
		Command: strings.ToLower(parts[0]),
		Args:    args,
		RawArgs: strings.Join(args, " "),
		Channel: channel,
		User:    msg.User,
	}, true
}

var nameSuffixes = []string{":", ",", " "}

// stripAddress checks, in order, for a <@ID> mention, an @Name mention and a
// case-insensitive "name:", "name," or "name " prefix.
func (p *Processor) stripAddress(text string) (string, bool) {
	if p.identity.ID != "" {
		if rest, ok := strings.CutPrefix(text, "<@"+p.identity.ID+">"); ok {
			return strings.TrimSpace(rest), true
		}
	}

	if p.identity.Name == "" {
		return text, false
	}

	if rest, ok := strings.CutPrefix(text, "@"+p.identity.Name); ok {
		return strings.TrimSpace(rest), true
	}

	for _, suffix := range nameSuffixes {
		prefix := p.identity.Name + suffix
		if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			return strings.TrimSpace(text[len(prefix):]), true
		}
	}

	return text, false
}
