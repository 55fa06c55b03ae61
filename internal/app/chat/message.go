/*
Package chat contains the core logic of the relay: the wire codec, the connection
registry, the broadcast hub, and the per-connection session handling.

This file defines the wire envelope exchanged with clients and its JSON codec.
Every frame is a single JSON object carrying exactly one payload, discriminated
by the message_type field.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the discriminant of the wire envelope.
type MessageType string

const (
	// TypeNewMessage carries one chat line in the message field.
	TypeNewMessage MessageType = "NewMessage"

	// TypeUsersList carries the full roster of display names in the users field.
	TypeUsersList MessageType = "UsersList"

	// TypeUsernameChange carries a display name in the username field. The server
	// sends it unicast to confirm a connection's own name; clients send it to
	// request a rename.
	TypeUsernameChange MessageType = "UsernameChange"
)

// SystemAuthor is the author of server-generated chat lines (arrivals,
// departures, renames).
const SystemAuthor = "System"

// timestampLayout is ISO-8601 without a zone suffix. Timestamp values are
// always UTC; fractional seconds are emitted only when present.
const timestampLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is a UTC wall-clock time with the wire encoding described above.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp, truncated to UTC.
func Now() Timestamp {
	return Timestamp{time.Now().UTC()}
}

// MarshalJSON encodes the timestamp as a JSON string in the wire layout.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timestampLayout))
}

// UnmarshalJSON decodes the wire layout, falling back to RFC 3339 for clients
// that append a zone designator.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := time.Parse(timestampLayout, raw)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("invalid created_at value %q: %w", raw, err)
		}
	}

	t.Time = parsed.UTC()
	return nil
}

// ChatMessage is one chat line. It is immutable once built: the author is the
// display name captured at send time, so renaming a user never rewrites
// previously relayed lines.
type ChatMessage struct {
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt Timestamp `json:"created_at"`
}

// Envelope is the tagged wire message. Exactly one of Message, Users, and
// Username is populated per MessageType; the other fields serialize as null.
type Envelope struct {
	MessageType MessageType  `json:"message_type"`
	Message     *ChatMessage `json:"message"`
	Users       []string     `json:"users"`
	Username    *string      `json:"username"`
}

// NewChatEnvelope wraps a chat line for broadcast.
func NewChatEnvelope(msg ChatMessage) Envelope {
	return Envelope{MessageType: TypeNewMessage, Message: &msg}
}

// NewRosterEnvelope wraps a roster snapshot for broadcast.
func NewRosterEnvelope(users []string) Envelope {
	if users == nil {
		users = []string{}
	}
	return Envelope{MessageType: TypeUsersList, Users: users}
}

// NewUsernameEnvelope wraps a display name for a unicast confirmation.
func NewUsernameEnvelope(username string) Envelope {
	return Envelope{MessageType: TypeUsernameChange, Username: &username}
}

// EncodeEnvelope serializes an envelope into a single JSON text frame.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// DecodeEnvelope parses a text frame into an envelope. Decoding is strict
// about the variant contract: an unknown discriminant or a missing required
// payload is a decode failure. Callers treat failures as "ignore this frame",
// never as a connection-ending error.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.MessageType {
	case TypeNewMessage:
		if env.Message == nil {
			return Envelope{}, fmt.Errorf("%s frame is missing the message payload", TypeNewMessage)
		}
	case TypeUsersList:
		if env.Users == nil {
			return Envelope{}, fmt.Errorf("%s frame is missing the users payload", TypeUsersList)
		}
	case TypeUsernameChange:
		if env.Username == nil {
			return Envelope{}, fmt.Errorf("%s frame is missing the username payload", TypeUsernameChange)
		}
	default:
		return Envelope{}, fmt.Errorf("unknown message_type %q", env.MessageType)
	}

	return env, nil
}
