// Package channel implements the typed broadcast-channel fabric: a
// closed set of payload variants carried over one-slot broadcast
// channels, addressed by ChannelId and wired through a variant-tagged
// Sender/Receiver pair rather than an open interface{} dispatch.
package channel

import (
	"errors"
	"strings"
)

// ErrInvalidChannelID is returned when a channel id string is empty or
// has more than two "::"-separated parts.
var ErrInvalidChannelID = errors.New("channel: invalid channel id")

// DefaultPort is the port name implied by a bare "stage" id string.
const DefaultPort = "default"

// ID identifies one broadcast channel as a (stage, port) pair.
type ID struct {
	Stage string
	Port  string
}

// New builds an ID directly, defaulting Port when empty.
func New(stage, port string) ID {
	if port == "" {
		port = DefaultPort
	}
	return ID{Stage: stage, Port: port}
}

// ParseID parses a user-facing channel id string. "a::b" parses to
// (a, b); a bare "a" parses to (a, "default"). Only the literal "::"
// separator splits the string — a single colon is not a separator.
// Empty strings and strings with more than one "::" are rejected.
func ParseID(s string) (ID, error) {
	if s == "" {
		return ID{}, ErrInvalidChannelID
	}

	parts := strings.Split(s, "::")
	switch len(parts) {
	case 1:
		return ID{Stage: parts[0], Port: DefaultPort}, nil
	case 2:
		return ID{Stage: parts[0], Port: parts[1]}, nil
	default:
		return ID{}, ErrInvalidChannelID
	}
}

// String renders the canonical "stage::port" form.
func (id ID) String() string {
	return id.Stage + "::" + id.Port
}
