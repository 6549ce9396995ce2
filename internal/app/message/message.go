/*
Package message defines the chat message exchanged between sessions, persisted in the
history and returned by the REST API.

A Message carries only a sender and a body. Its position in the history is its only
ordering information. On the wire it travels as a "<sender>: <body>" text frame; at rest
and over REST it is encoded as a two-element JSON array ["sender", "body"].
*/
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FrameDelimiter separates the sender from the body in a WebSocket text frame.
const FrameDelimiter = ": "

// Message is a single chat line. It is immutable once created.
type Message struct {
	// Sender is the username the client put in front of the delimiter.
	Sender string

	// Body is everything after the first delimiter, verbatim.
	Body string
}

// New constructs a Message.
func New(sender, body string) Message {
	return Message{Sender: sender, Body: body}
}

// ParseFrame splits an inbound text frame on the first FrameDelimiter.
// It reports false for empty frames and frames without a delimiter.
func ParseFrame(frame string) (Message, bool) {
	if frame == "" {
		return Message{}, false
	}

	sender, body, found := strings.Cut(frame, FrameDelimiter)
	if !found {
		return Message{}, false
	}

	return Message{Sender: sender, Body: body}, true
}

// Frame formats the message as an outbound text frame.
func (m Message) Frame() string {
	return m.Sender + FrameDelimiter + m.Body
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return m.Frame()
}

// MarshalJSON encodes the message as a two-element record ["sender", "body"].
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{m.Sender, m.Body})
}

// UnmarshalJSON accepts the two-element record form. The object form
// {"sender": ..., "body": ...} is also accepted so hand-edited history files load.
func (m *Message) UnmarshalJSON(data []byte) error {
	var record []string
	if err := json.Unmarshal(data, &record); err == nil {
		if len(record) != 2 {
			return fmt.Errorf("message record must have 2 elements, got %d", len(record))
		}
		m.Sender, m.Body = record[0], record[1]
		return nil
	}

	var object struct {
		Sender *string `json:"sender"`
		Body   *string `json:"body"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("message must be a [sender, body] record: %w", err)
	}
	if object.Sender == nil || object.Body == nil {
		return fmt.Errorf("message object requires sender and body")
	}

	m.Sender, m.Body = *object.Sender, *object.Body
	return nil
}
