package sender

import (
	"errors"
	"fmt"
	"strings"
)

// SendError classifies delivery call failures. Transport failures
// (connection refused, timeout) are distinguished from endpoints that
// answered with a non-2xx status so delivery records can tell them apart.
type SendError struct {
	StatusCode int
	Message    string
	Transport  bool
	Cause      error
}

func (e *SendError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	if e.Transport {
		parts = append(parts, "transport error")
	} else {
		parts = append(parts, "delivery error")
	}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransport reports whether an error came from the transport layer
// rather than from the remote endpoint's response.
func IsTransport(err error) bool {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Transport
	}
	return false
}

// StatusCode extracts the HTTP status from a delivery error, 0 if none.
func StatusCode(err error) int {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.StatusCode
	}
	return 0
}
