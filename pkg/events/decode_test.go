package events

import (
	"errors"
	"testing"
)

const helloFrame = `{"type":"hello","num_connections":1,"debug_info":{"host":"applink-2","build_number":30,"approximate_connection_time":18060},"connection_info":{"app_id":"fake-app-id"}}`

const messageFrame = `{"envelope_id":"fake-enve-lope-i-d","payload":{"token":"F4K3T0K3N","team_id":"F4K3T34M1D","api_app_id":"F4K34P1ID","event":{"client_msg_id":"fake-client-msg-id","type":"message","text":"test","user":"F4K3USER1D","ts":"1686321337.206879","team":"F4K3T34M1D","channel":"F4K3CH4NN3L1D","event_ts":"1686321337.206879","channel_type":"im"},"type":"event_callback","event_id":"F4K33V3NT1D","event_time":1686321337},"type":"events_api","accepts_response_payload":false,"retry_attempt":0,"retry_reason":""}`

func TestDecodeHello(t *testing.T) {
	frame, err := DecodeFrame([]byte(helloFrame))
	if err != nil {
		t.Fatalf("DecodeFrame returned error: %v", err)
	}
	if _, ok := frame.(Hello); !ok {
		t.Fatalf("expected Hello, got %T", frame)
	}
	if _, ok := frame.(Enveloped); ok {
		t.Error("Hello must not carry an envelope")
	}
}

func TestDecodeDisconnect(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"type":"disconnect","reason":"refresh_requested"}`))
	if err != nil {
		t.Fatalf("DecodeFrame returned error: %v", err)
	}
	d, ok := frame.(Disconnect)
	if !ok {
		t.Fatalf("expected Disconnect, got %T", frame)
	}
	if d.Reason != "refresh_requested" {
		t.Errorf("expected reason refresh_requested, got %q", d.Reason)
	}
}

func TestDecodeMessageEvent(t *testing.T) {
	frame, err := DecodeFrame([]byte(messageFrame))
	if err != nil {
		t.Fatalf("DecodeFrame returned error: %v", err)
	}
	ef, ok := frame.(EventFrame)
	if !ok {
		t.Fatalf("expected EventFrame, got %T", frame)
	}
	if ef.EnvelopeID() != "fake-enve-lope-i-d" {
		t.Errorf("unexpected envelope id %q", ef.EnvelopeID())
	}

	msg, ok := ef.Event.(*Message)
	if !ok {
		t.Fatalf("expected *Message, got %T", ef.Event)
	}
	if msg.ID != "1686321337.206879" {
		t.Errorf("unexpected id %q", msg.ID)
	}
	if msg.Text != "test" || msg.User != "F4K3USER1D" || msg.Channel != "F4K3CH4NN3L1D" || msg.ChannelType != "im" {
		t.Errorf("unexpected message fields: %+v", msg)
	}
}

func TestDecodeEnvelopeFrames(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"interactive", `{"type":"interactive","envelope_id":"env-1","payload":{}}`, FrameInteractive},
		{"slash command", `{"type":"slash_commands","envelope_id":"env-2","payload":{}}`, FrameSlashCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeFrame([]byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeFrame returned error: %v", err)
			}
			if frame.FrameType() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, frame.FrameType())
			}
			if _, ok := frame.(Enveloped); !ok {
				t.Errorf("%s must carry an envelope", tt.want)
			}
		})
	}
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `not json at all`},
		{"unknown type", `{"type":"brand_new_thing"}`},
		{"events without envelope", `{"type":"events_api","payload":{"event":{"type":"message"}}}`},
		{"events without event", `{"type":"events_api","envelope_id":"e","payload":{}}`},
		{"event without type", `{"type":"events_api","envelope_id":"e","payload":{"event":{"text":"hi"}}}`},
		{"interactive without envelope", `{"type":"interactive"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame([]byte(tt.data)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDecodeUnknownFrameTypeError(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"type":"brand_new_thing"}`))
	var unsupported *UnsupportedFrameError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFrameError, got %v", err)
	}
	if unsupported.Type != "brand_new_thing" {
		t.Errorf("unexpected type %q", unsupported.Type)
	}
}

func TestDecodeEmojiEvents(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, e *EmojiChanged)
	}{
		{
			name: "add",
			data: `{"type":"emoji_changed","subtype":"add","name":"blobcat_knife","value":"https://emoji.example/blobcat_knife.png","event_ts":"1687458875.040100"}`,
			check: func(t *testing.T, e *EmojiChanged) {
				if e.Subtype != EmojiAdd || e.Name != "blobcat_knife" || e.ID != "1687458875.040100" {
					t.Errorf("unexpected add event: %+v", e)
				}
			},
		},
		{
			name: "remove",
			data: `{"type":"emoji_changed","subtype":"remove","names":["picard_facepalm"],"event_ts":"1361482916.000004"}`,
			check: func(t *testing.T, e *EmojiChanged) {
				if e.Subtype != EmojiRemove || len(e.Names) != 1 || e.Names[0] != "picard_facepalm" {
					t.Errorf("unexpected remove event: %+v", e)
				}
			},
		},
		{
			name: "rename",
			data: `{"type":"emoji_changed","subtype":"rename","old_name":"grin","new_name":"cheese-grin","event_ts":"1361482916.000004"}`,
			check: func(t *testing.T, e *EmojiChanged) {
				if e.Subtype != EmojiRename || e.OldName != "grin" || e.NewName != "cheese-grin" {
					t.Errorf("unexpected rename event: %+v", e)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeEvent returned error: %v", err)
			}
			emoji, ok := ev.(*EmojiChanged)
			if !ok {
				t.Fatalf("expected *EmojiChanged, got %T", ev)
			}
			tt.check(t, emoji)
		})
	}
}

func TestDecodeOtherEventsArePassedThrough(t *testing.T) {
	raw := `{"type":"reaction_added","user":"U1","reaction":"thumbsup"}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	opaque, ok := ev.(*Opaque)
	if !ok {
		t.Fatalf("expected *Opaque, got %T", ev)
	}
	if opaque.Type() != "reaction_added" {
		t.Errorf("unexpected type %q", opaque.Type())
	}
	if string(opaque.Raw) != raw {
		t.Errorf("raw payload not preserved: %s", opaque.Raw)
	}
}
