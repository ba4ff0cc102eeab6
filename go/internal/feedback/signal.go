package feedback

import (
	"context"
	"time"
)

// Kind classifies a feedback signal
type Kind string

const (
	// KindHorn fires when the game clock expires
	KindHorn Kind = "horn"
	// KindShotClockViolation fires when the shot clock reaches zero
	KindShotClockViolation Kind = "shot_clock_violation"
	// KindAction acknowledges an operator command, for haptics on the control surface
	KindAction Kind = "action"
)

// Signal is a fire-and-forget side effect such as a horn or a button vibration
type Signal struct {
	Code   string    `json:"code"`
	Kind   Kind      `json:"kind"`
	Detail string    `json:"detail,omitempty"`
	Period int       `json:"period,omitempty"`
	At     time.Time `json:"at"`
}

// Sink delivers signals to whatever renders them
type Sink interface {
	Send(ctx context.Context, sig Signal) error
	Close() error
}

// Emitter is what the host session depends on
type Emitter interface {
	Emit(sig Signal) bool
}
