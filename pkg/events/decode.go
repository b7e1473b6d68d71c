package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/slack-go/slack/socketmode"
)

// ErrMissingEnvelope is returned for envelope-bearing frame types that arrive
// without an envelope id.
var ErrMissingEnvelope = errors.New("frame has no envelope_id")

// UnsupportedFrameError is returned for frame types this runtime does not know.
type UnsupportedFrameError struct {
	Type string
}

func (e *UnsupportedFrameError) Error() string {
	return fmt.Sprintf("unsupported frame type %q", e.Type)
}

// DecodeFrame classifies one JSON text frame.
func DecodeFrame(data []byte) (Frame, error) {
	var req socketmode.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}

	switch req.Type {
	case socketmode.RequestTypeHello:
		return Hello{}, nil

	case socketmode.RequestTypeDisconnect:
		return Disconnect{Reason: req.Reason}, nil

	case socketmode.RequestTypeEventsAPI:
		if req.EnvelopeID == "" {
			return nil, ErrMissingEnvelope
		}
		var payload struct {
			Event json.RawMessage `json:"event"`
		}
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decoding events_api payload: %w", err)
		}
		if len(payload.Event) == 0 {
			return nil, errors.New("events_api payload has no event")
		}
		ev, err := DecodeEvent(payload.Event)
		if err != nil {
			return nil, err
		}
		return EventFrame{Envelope: req.EnvelopeID, Event: ev}, nil

	case socketmode.RequestTypeInteractive:
		if req.EnvelopeID == "" {
			return nil, ErrMissingEnvelope
		}
		return Interactive{Envelope: req.EnvelopeID}, nil

	case socketmode.RequestTypeSlashCommands:
		if req.EnvelopeID == "" {
			return nil, ErrMissingEnvelope
		}
		return SlashCommand{Envelope: req.EnvelopeID}, nil

	default:
		return nil, &UnsupportedFrameError{Type: req.Type}
	}
}

type messageWire struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	TS          string `json:"ts"`
	EventTS     string `json:"event_ts"`
	ThreadTS    string `json:"thread_ts"`
	Text        string `json:"text"`
	User        string `json:"user"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	BotID       string `json:"bot_id"`
}

type emojiWire struct {
	Subtype string   `json:"subtype"`
	Name    string   `json:"name"`
	Names   []string `json:"names"`
	OldName string   `json:"old_name"`
	NewName string   `json:"new_name"`
	Value   string   `json:"value"`
	EventTS string   `json:"event_ts"`
}

// DecodeEvent decodes the inner event of an events_api payload.
func DecodeEvent(raw json.RawMessage) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	if head.Type == "" {
		return nil, errors.New("event has no type")
	}

	switch head.Type {
	case TypeMessage:
		var w messageWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decoding message event: %w", err)
		}
		id := w.TS
		if id == "" {
			id = w.EventTS
		}
		return &Message{
			ID:          id,
			Text:        w.Text,
			User:        w.User,
			Channel:     w.Channel,
			ChannelType: w.ChannelType,
			ThreadTS:    w.ThreadTS,
			Subtype:     w.Subtype,
			BotID:       w.BotID,
		}, nil

	case TypeEmojiChanged:
		var w emojiWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decoding emoji_changed event: %w", err)
		}
		return &EmojiChanged{
			ID:      w.EventTS,
			Subtype: w.Subtype,
			Name:    w.Name,
			Names:   w.Names,
			OldName: w.OldName,
			NewName: w.NewName,
			Value:   w.Value,
		}, nil

	default:
		return &Opaque{Kind: head.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
