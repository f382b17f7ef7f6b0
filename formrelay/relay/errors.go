package relay

import (
	"fmt"
)

// TransportError means the relay call itself failed: the request could not
// be sent, or the response could not be read or understood.
type TransportError struct {
	Op         string // "build", "send", "read", "decode" or "status"
	StatusCode int    // HTTP status, zero when no response arrived
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("relay: %s (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("relay: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError means the relay answered with a falsy success flag.
type ApplicationError struct {
	StatusCode int
	Message    string // relay-provided message, may be empty
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay: submission rejected (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("relay: submission rejected (status %d): %s", e.StatusCode, e.Message)
}
