package logging

import (
	"reflect"

	"vulnagent/internal/shared/utils"
)

// Logger defines a minimal, printf-style logging contract.
//
// Core packages depend on this interface only, so callers can plug in the file
// backed component logger, a test recorder, or Nop.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return utils.NewComponentLogger(component)
}

// NewTransportLogger returns a logger that writes to vulnagent-transport.log.
func NewTransportLogger(component string) Logger {
	return utils.NewCategorizedLogger(utils.LogCategoryTransport, component)
}

// WithConversation tags lines from file-backed loggers with a conversation id.
// Other implementations are returned unchanged.
func WithConversation(logger Logger, conversationID string) Logger {
	if fileLogger, ok := logger.(*utils.Logger); ok && fileLogger != nil {
		return fileLogger.WithConversation(conversationID)
	}
	return OrNop(logger)
}
