package event

import (
	"encoding/json"
)

// Event is an immutable notification carrying a payload of type D.
type Event[D interface{}] struct {
	EventHeader Header `json:"header"`
	EventData   D      `json:"data"`
}

var _ Message = &Event[interface{}]{}

func (e *Event[D]) Header() Header {
	return e.EventHeader
}

func (e *Event[D]) Data() D {
	return e.EventData
}

func (e *Event[D]) Payload() interface{} {
	return e.EventData
}

func (e *Event[D]) String() string {
	bytes, err := json.Marshal(e)
	if err != nil {
		return string(e.EventHeader.ID)
	}
	return string(bytes)
}
