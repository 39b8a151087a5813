package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	ContentTypeText = "text/plain"
	ContentTypeJSON = "application/json"

	// CloseContent is the sentinel payload of a CloseMessage.
	CloseContent = "---CLOSE---"

	// Keys that mark a JSON object as an event.
	EventNameKey    = "event_name"
	EventMessageKey = "event_message"

	lengthPrefixSize = 4
	maxHeaderLength  = 9999
)

// ErrNotReady is returned when encoding a message with an empty or
// absent payload. The wire format cannot represent an empty frame.
var ErrNotReady = errors.New("message has no payload to encode")

// FramingError reports a frame whose header or content could not be
// decoded. The byte offset past a malformed frame is unrecoverable,
// so the owning connection is expected to drop on it.
type FramingError struct {
	Part string // "header" or "content"
	Err  error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("invalid frame %s: %v", e.Part, e.Err)
}

func (e *FramingError) Unwrap() error { return e.Err }

// Message is one unit of communication: a content-type tag plus a
// payload. Concrete variants are TextMessage, CloseMessage,
// JSONMessage, EventMessage and RawMessage.
type Message interface {
	ContentType() string
	Payload() ([]byte, error)
}

type TextMessage struct {
	Text string
}

func (m TextMessage) ContentType() string { return ContentTypeText }

func (m TextMessage) Payload() ([]byte, error) {
	if m.Text == "" {
		return nil, nil
	}
	return []byte(m.Text), nil
}

// CloseMessage tells the peer the sender is closing the connection.
type CloseMessage struct{}

func (CloseMessage) ContentType() string { return ContentTypeText }

func (CloseMessage) Payload() ([]byte, error) {
	return []byte(CloseContent), nil
}

type JSONMessage struct {
	Value any
}

func (m JSONMessage) ContentType() string { return ContentTypeJSON }

func (m JSONMessage) Payload() ([]byte, error) {
	if m.Value == nil {
		return nil, nil
	}
	return json.Marshal(m.Value)
}

// EventMessage is a JSON message recognized by its key shape, not a
// distinct wire tag. It routes to a named handler on the server.
type EventMessage struct {
	Name string
	Data any
}

func (m EventMessage) ContentType() string { return ContentTypeJSON }

func (m EventMessage) Payload() ([]byte, error) {
	return json.Marshal(map[string]any{
		EventNameKey:    m.Name,
		EventMessageKey: m.Data,
	})
}

// RawMessage carries the payload of any content type no other variant
// claims.
type RawMessage struct {
	Type string
	Data []byte
}

func (m RawMessage) ContentType() string { return m.Type }

func (m RawMessage) Payload() ([]byte, error) {
	if len(m.Data) == 0 {
		return nil, nil
	}
	return m.Data, nil
}

type frameHeader struct {
	ContentType   string `json:"content-type"`
	ContentLength int    `json:"content-length"`
}

// Encode serializes msg into one wire frame: a 4-character zero-padded
// decimal header length, the JSON header and the raw payload.
func Encode(msg Message) ([]byte, error) {
	payload, err := msg.Payload()
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrNotReady
	}

	header, err := json.Marshal(frameHeader{
		ContentType:   msg.ContentType(),
		ContentLength: len(payload),
	})
	if err != nil {
		return nil, err
	}
	if len(header) > maxHeaderLength {
		return nil, fmt.Errorf("header length %d exceeds %d", len(header), maxHeaderLength)
	}

	frame := make([]byte, 0, lengthPrefixSize+len(header)+len(payload))
	frame = append(frame, fmt.Sprintf("%04d", len(header))...)
	frame = append(frame, header...)
	frame = append(frame, payload...)
	return frame, nil
}

// Decode maps a payload to its concrete variant by content type.
// text/plain refines to CloseMessage on sentinel equality and
// application/json refines to EventMessage on key shape.
func Decode(contentType string, payload []byte) (Message, error) {
	switch contentType {
	case ContentTypeText:
		if !utf8.Valid(payload) {
			return nil, &FramingError{Part: "content", Err: errors.New("payload is not valid UTF-8")}
		}
		text := string(payload)
		if text == CloseContent {
			return CloseMessage{}, nil
		}
		return TextMessage{Text: text}, nil

	case ContentTypeJSON:
		var value any
		if err := json.Unmarshal(payload, &value); err != nil {
			return nil, &FramingError{Part: "content", Err: err}
		}
		if obj, ok := value.(map[string]any); ok {
			if name, data, ok := eventFields(obj); ok {
				return EventMessage{Name: name, Data: data}, nil
			}
		}
		return JSONMessage{Value: value}, nil

	default:
		return RawMessage{Type: contentType, Data: payload}, nil
	}
}

// eventFields extracts the event keys from a decoded JSON object. A
// non-string event_name does not qualify as an event.
func eventFields(obj map[string]any) (string, any, bool) {
	rawName, ok := obj[EventNameKey]
	if !ok {
		return "", nil, false
	}
	name, ok := rawName.(string)
	if !ok {
		return "", nil, false
	}
	data, ok := obj[EventMessageKey]
	if !ok {
		return "", nil, false
	}
	return name, data, true
}
