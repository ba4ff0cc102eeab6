package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/courtside/go/internal/match"
)

// MatchEvent is the envelope for everything sent to a viewer
type MatchEvent struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type EventType string

const (
	EventTypeView  EventType = "view"
	EventTypeAck   EventType = "ack"
	EventTypeError EventType = "error"
)

// ErrorPayload is the data of an error event
type ErrorPayload struct {
	Message string `json:"message"`
}

// AckPayload confirms a command was applied. The resulting view follows as a view event.
type AckPayload struct {
	Kind       string `json:"kind"`
	LastUpdate int64  `json:"last_update"`
}

// ClientMessage is what tablets and hosts send over the socket
type ClientMessage struct {
	Type    string               `json:"type"`
	Command match.CommandPayload `json:"command"`
}

const clientMessageCommand = "command"

func newEvent(code string, eventType EventType, payload interface{}) (*MatchEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &MatchEvent{
		ID:        uuid.NewString(),
		Code:      code,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
