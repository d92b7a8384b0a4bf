package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies user-visible failures
type ErrorKind int

const (
	// KindNone - no error
	KindNone ErrorKind = iota
	// KindTransport - the agent service call failed
	KindTransport
	// KindSemantic - the service answered with an error payload
	KindSemantic
	// KindState - the caller asked for something the conversation cannot do now
	KindState
	// KindUnknown - anything else
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindSemantic:
		return "semantic"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// TransportError represents a failed call to the agent service. It is never retried.
type TransportError struct {
	Err        error
	StatusCode int    // HTTP status code if the service answered
	Body       string // truncated response body, for logs only
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return "transport error"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SemanticError is an error reported inside the decoded payload itself
type SemanticError struct {
	Message string
}

func (e *SemanticError) Error() string {
	return e.Message
}

// StateError is a local, recoverable misuse of the conversation flow
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	if e.Op == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// IsTransport reports whether err is (or wraps) a TransportError
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsSemantic reports whether err is (or wraps) a SemanticError
func IsSemantic(err error) bool {
	var semanticErr *SemanticError
	return errors.As(err, &semanticErr)
}

// IsState reports whether err is (or wraps) a StateError
func IsState(err error) bool {
	var stateErr *StateError
	return errors.As(err, &stateErr)
}

// KindOf classifies an error
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case IsState(err):
		return KindState
	case IsSemantic(err):
		return KindSemantic
	case IsTransport(err):
		return KindTransport
	default:
		return KindUnknown
	}
}

// DisplayMessage renders err as the single short message shown to the user.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var semanticErr *SemanticError
	if errors.As(err, &semanticErr) {
		return semanticErr.Message
	}

	var stateErr *StateError
	if errors.As(err, &stateErr) {
		return stateErr.Reason
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.StatusCode > 0 {
			return transportErr.Error()
		}
		if isConnectionRefused(transportErr.Err) {
			return "Agent service is not running. Please check the configured agent_url."
		}
		if isTimeout(transportErr.Err) {
			return "Request to the agent service timed out."
		}
		return transportErr.Error()
	}

	return err.Error()
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	lowerErr := strings.ToLower(err.Error())
	return strings.Contains(lowerErr, "deadline exceeded") || strings.Contains(lowerErr, "timeout")
}

// Helper constructors

// NewTransportError wraps a failed call; statusCode is 0 when no response arrived
func NewTransportError(err error, statusCode int, body string) *TransportError {
	return &TransportError{
		Err:        err,
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewSemanticError creates a new semantic error from the payload's error field
func NewSemanticError(message string) *SemanticError {
	return &SemanticError{Message: message}
}

// NewStateError creates a new state error
func NewStateError(op, reason string) *StateError {
	return &StateError{Op: op, Reason: reason}
}
