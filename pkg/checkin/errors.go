package checkin

import "errors"

// Check-in errors.
var (
	// ErrCorruptState is returned when persisted registry state cannot be
	// decoded. The caller decides whether to abort or start fresh.
	ErrCorruptState = errors.New("checkin: corrupt persisted state")

	// ErrClientNotFound is returned when no client matches the given
	// fabric and node.
	ErrClientNotFound = errors.New("checkin: client not found")

	// ErrTooManyClients is returned when a fabric reaches its client
	// limit.
	ErrTooManyClients = errors.New("checkin: too many clients for fabric")

	// ErrInvalidKey is returned when a registration carries a key of the
	// wrong length.
	ErrInvalidKey = errors.New("checkin: invalid key length")

	// ErrMalformedMessage is returned when a check-in message has an
	// unexpected size or an inconsistent counter.
	ErrMalformedMessage = errors.New("checkin: malformed message")
)
