package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	logDirEnvVar    = "VULNAGENT_LOG_DIR"
	logStdoutEnvVar = "VULNAGENT_LOG_STDOUT"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

type LogCategory string

const (
	LogCategoryService   LogCategory = "service"
	LogCategoryTransport LogCategory = "transport"
)

var (
	loggerInstance  *Logger
	loggerOnce      sync.Once
	categoryMu      sync.Mutex
	categoryLoggers = make(map[LogCategory]*Logger)
	defaultLevel    = INFO
)

// Logger writes component-tagged lines to vulnagent-<category>.log
type Logger struct {
	file       *os.File
	logger     *log.Logger
	level      LogLevel
	mu         *sync.Mutex
	component  string
	enableFile bool
	category   LogCategory
	convID     string
}

// GetLogger returns the singleton service logger
func GetLogger() *Logger {
	return getOrCreateCategoryLogger(LogCategoryService)
}

// NewComponentLogger creates a service logger for a specific component
func NewComponentLogger(component string) *Logger {
	return NewCategorizedLogger(LogCategoryService, component)
}

// NewCategorizedLogger creates a logger for a specific category and component.
// Derived loggers share the base logger's file and lock.
func NewCategorizedLogger(category LogCategory, component string) *Logger {
	base := getOrCreateCategoryLogger(category)
	return &Logger{
		file:       base.file,
		logger:     base.logger,
		level:      base.level,
		mu:         base.mu,
		component:  component,
		enableFile: base.enableFile,
		category:   category,
	}
}

// SetDefaultLevel changes the level used by loggers created afterwards.
func SetDefaultLevel(level LogLevel) {
	categoryMu.Lock()
	defer categoryMu.Unlock()
	defaultLevel = level
}

// ParseLevel maps a config string to a LogLevel, defaulting to INFO.
func ParseLevel(value string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func getOrCreateCategoryLogger(category LogCategory) *Logger {
	if category == LogCategoryService {
		loggerOnce.Do(func() {
			categoryMu.Lock()
			level := defaultLevel
			categoryMu.Unlock()
			loggerInstance = newLogger("", level, true, category)
		})
		return loggerInstance
	}

	categoryMu.Lock()
	defer categoryMu.Unlock()

	if logger, ok := categoryLoggers[category]; ok {
		return logger
	}

	logger := newLogger("", defaultLevel, true, category)
	categoryLoggers[category] = logger
	return logger
}

func newLogger(component string, level LogLevel, enableFile bool, category LogCategory) *Logger {
	l := &Logger{
		level:      level,
		mu:         &sync.Mutex{},
		component:  component,
		enableFile: enableFile,
		category:   category,
	}

	if enableFile {
		logDir, err := resolveLogDirectory()
		if err != nil {
			log.Printf("Failed to resolve log directory: %v", err)
			return l
		}
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Failed to create log directory %s: %v", logDir, err)
			return l
		}

		file, err := os.OpenFile(filepath.Join(logDir, logFileName(category)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("Failed to open log file: %v", err)
			return l
		}

		l.file = file
		l.logger = log.New(file, "", 0)
	}

	return l
}

// LogDirectory returns the directory holding the vulnagent log files.
func LogDirectory() (string, error) {
	return resolveLogDirectory()
}

// LogFileName returns the file name used for a category.
func LogFileName(category LogCategory) string {
	return logFileName(category)
}

func resolveLogDirectory() (string, error) {
	if override := strings.TrimSpace(os.Getenv(logDirEnvVar)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vulnagent", "logs"), nil
}

func logFileName(category LogCategory) string {
	switch category {
	case LogCategoryTransport:
		return "vulnagent-transport.log"
	default:
		return "vulnagent-service.log"
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithConversation returns a shallow copy that tags lines with a conversation id.
func (l *Logger) WithConversation(conversationID string) *Logger {
	if l == nil {
		return nil
	}
	if strings.TrimSpace(conversationID) == "" {
		return l
	}
	clone := *l
	clone.convID = conversationID
	return &clone
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level || !l.enableFile {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2025-09-30 12:34:56 [INFO] [SERVICE] [component] file.go:123 - message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	component := l.component
	if component == "" {
		component = "VULNAGENT"
	}
	category := strings.ToUpper(string(l.category))
	if category == "" {
		category = "SERVICE"
	}

	tag := ""
	if convID := strings.TrimSpace(l.convID); convID != "" {
		tag = fmt.Sprintf(" [conversation=%s]", convID)
	}
	logLine := fmt.Sprintf("%s [%s] [%s] [%s]%s %s:%d - %s\n",
		timestamp, levelToString(level), category, component, tag, file, line, fmt.Sprintf(format, args...))

	if l.logger != nil {
		l.logger.Print(logLine)
	}
	if os.Getenv(logStdoutEnvVar) == "1" {
		fmt.Print(logLine)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
