// Package event defines the notifications emitted while planning and
// configuring, and a bus to deliver them.
package event

import "time"

type SourceID string
type ID string
type Metadata map[string]string

type IDProvider interface {
	NextEventID() ID
}

// Message is the untyped view of an Event, as seen by bus listeners.
type Message interface {
	Header() Header
	Payload() interface{}
}

// Header carries the envelope fields shared by all events.
type Header struct {
	ID       ID        `json:"eventID"`
	Source   SourceID  `json:"source"`
	Created  time.Time `json:"creationTime"`
	Metadata Metadata  `json:"metadata,omitempty"`
}
