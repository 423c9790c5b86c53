package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/estudorank/estudorank/internal/errors"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logrusLevels = map[LogLevel]logrus.Level{
	DEBUG: logrus.DebugLevel,
	INFO:  logrus.InfoLevel,
	WARN:  logrus.WarnLevel,
	ERROR: logrus.ErrorLevel,
	FATAL: logrus.FatalLevel,
}

// ParseLevel maps a config string ("debug", "info", ...) to a LogLevel.
// Unknown values fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

type Logger struct {
	entry    *logrus.Logger
	file     *os.File
	exitFunc func(int)
	mu       sync.Mutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

func init() {
	once.Do(func() {
		defaultLogger = NewLogger(INFO, os.Stdout)
	})
}

// NewLogger creates a new Logger instance writing text lines to output
func NewLogger(level LogLevel, output io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(output)
	l.SetLevel(logrusLevels[level])
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &Logger{entry: l, exitFunc: os.Exit}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry.SetLevel(logrusLevels[level])
}

// SetFormat switches between the "text" and "json" formatters.
func (l *Logger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if format == "json" {
		l.entry.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
		return
	}
	l.entry.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// EnableFileLogging tees every entry into a daily file inside directory
func (l *Logger) EnableFileLogging(directory string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(directory, fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.entry.SetOutput(io.MultiWriter(l.entry.Out, file))
	return nil
}

// WithFields returns an entry carrying structured context
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.entry.WithFields(logrus.Fields(fields))
}

func (l *Logger) log(level LogLevel, format string, v ...interface{}) {
	lvl := logrusLevels[level]
	if !l.entry.IsLevelEnabled(lvl) {
		return
	}

	_, file, line, _ := runtime.Caller(2)
	entry := l.entry.WithField("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	msg := fmt.Sprintf(format, v...)

	if level == FATAL {
		// logrus.Fatal would bypass exitFunc
		entry.Log(logrus.ErrorLevel, msg)
		l.exitFunc(1)
		return
	}
	entry.Log(lvl, msg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(DEBUG, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(INFO, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(WARN, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(ERROR, format, v...)
}

// Fatal logs a fatal message and exits the program
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.log(FATAL, format, v...)
}

// Errorf logs an error message and returns an error
func (l *Logger) Errorf(err error, format string, v ...interface{}) error {
	msg := fmt.Sprintf(format, v...)
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	l.log(ERROR, "%s", wrappedErr.Error())
	return wrappedErr
}

// LogError logs err at ERROR, or at WARN for client-side errors, with a
// message chosen by its type.
func (l *Logger) LogError(err error) {
	switch e := err.(type) {
	case *errors.DatabaseError:
		l.log(ERROR, "Database error during %s: %v", e.Operation, e.Err)
	case *errors.WebSocketError:
		l.log(ERROR, "WebSocket error during %s: %v", e.Operation, e.Err)
	case *errors.APIError:
		l.log(ERROR, "API error (status %d): %s - %v", e.StatusCode, e.Message, e.Err)
	case *errors.ValidationError, *errors.NotFoundError:
		l.log(WARN, "%v", e)
	default:
		l.log(ERROR, "Unexpected error: %v", err)
	}
}

// Global functions that use the default logger

// Init configures the default logger from config values
func Init(level, format string) {
	defaultLogger.SetLevel(ParseLevel(level))
	defaultLogger.SetFormat(format)
}

// SetLevel sets the logging level for the default logger
func SetLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
}

// EnableFileLogging enables file logging for the default logger
func EnableFileLogging(directory string) error {
	return defaultLogger.EnableFileLogging(directory)
}

// WithFields returns a structured entry from the default logger
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return defaultLogger.WithFields(fields)
}

// Debug logs a debug message using the default logger
func Debug(format string, v ...interface{}) {
	defaultLogger.log(DEBUG, format, v...)
}

// Info logs an info message using the default logger
func Info(format string, v ...interface{}) {
	defaultLogger.log(INFO, format, v...)
}

// Warn logs a warning message using the default logger
func Warn(format string, v ...interface{}) {
	defaultLogger.log(WARN, format, v...)
}

// Error logs an error message using the default logger
func Error(format string, v ...interface{}) {
	defaultLogger.log(ERROR, format, v...)
}

// Fatal logs a fatal message and exits the program using the default logger
func Fatal(format string, v ...interface{}) {
	defaultLogger.log(FATAL, format, v...)
}

// Errorf logs an error message and returns an error using the default logger
func Errorf(err error, format string, v ...interface{}) error {
	msg := fmt.Sprintf(format, v...)
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.log(ERROR, "%s", wrappedErr.Error())
	return wrappedErr
}

// LogError logs err with a message chosen by its type
func LogError(err error) {
	defaultLogger.LogError(err)
}
