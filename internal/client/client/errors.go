package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// RejectedError is returned when the backend refuses a registration.
// Message is the backend's explanation and may be empty.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "registration rejected"
	}
	return "registration rejected: " + e.Message
}
