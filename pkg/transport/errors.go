package transport

import (
	"errors"
	"fmt"
	"time"
)

// ConnectionError indicates a backend could not be reached at connect time.
type ConnectionError struct {
	ServerID string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to server %s: %v", e.ServerID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates a malformed wire response or an explicit error
// envelope from the peer.
type ProtocolError struct {
	ServerID string
	Code     int
	Message  string
}

func (e *ProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc error from %s (%d): %s", e.ServerID, e.Code, e.Message)
	}
	return fmt.Sprintf("rpc error from %s: %s", e.ServerID, e.Message)
}

// TimeoutError indicates no response arrived within the call's deadline.
type TimeoutError struct {
	ServerID string
	Method   string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout calling %s on %s after %v", e.Method, e.ServerID, e.Timeout)
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
