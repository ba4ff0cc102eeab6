package match

import "errors"

var (
	// ErrMatchFinal is returned for any mutation of a match that has ended
	ErrMatchFinal = errors.New("match is final")
	// ErrDecisionRequired is returned when advancing past regulation without a choice
	ErrDecisionRequired = errors.New("end of period requires an overtime or reset decision")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrInvalidDelta     = errors.New("invalid delta")
	ErrInvalidCommand   = errors.New("invalid command")
)
