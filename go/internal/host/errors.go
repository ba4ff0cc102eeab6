package host

import "errors"

var (
	// ErrCodeTaken is returned when the store already holds a match under the code
	ErrCodeTaken = errors.New("match code already taken")
	// ErrMatchLocked is returned when another host wrote the match inside the lease window
	ErrMatchLocked = errors.New("match is hosted elsewhere")
	// ErrFenced is returned by a session that saw a newer write from another host
	ErrFenced        = errors.New("session fenced by another host")
	ErrSessionClosed = errors.New("session closed")
	ErrInvalidCode   = errors.New("invalid match code")
	ErrMatchNotFound = errors.New("match not found")
)
