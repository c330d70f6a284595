package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RequestIDKey is the field and context key carrying the request id
const RequestIDKey = "request_id"

var Logger *logrus.Logger

var (
	mu      sync.Mutex
	rotator *lumberjack.Logger
)

func init() {
	Logger = logrus.New()
	Configure(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		File:   os.Getenv("LOG_FILE"),
	})
}

// Options selects level, format and an optional rotating log file
type Options struct {
	Level  string
	Format string
	File   string
}

// Configure applies options to the package logger. It is called from init
// with the environment and again once configuration is loaded. A rotating
// file writer is reused while the file stays the same and closed once it is
// replaced.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	Logger.SetLevel(parseLevel(opts.Level))

	switch strings.ToLower(opts.Format) {
	case "text":
		Logger.SetFormatter(&formatter.Formatter{
			NoColors:        true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			HideKeys:        false,
			FieldsOrder:     []string{RequestIDKey, "component", "photo"},
		})
	default:
		// Set JSON formatter for structured logging
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	if rotator != nil && rotator.Filename != opts.File {
		rotator.Close()
		rotator = nil
	}
	if opts.File != "" && rotator == nil {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		}
	}

	writers := []io.Writer{os.Stdout}
	if rotator != nil {
		writers = append(writers, rotator)
	}
	Logger.SetOutput(io.MultiWriter(writers...))
}

// Close releases the rotating log file, if any. Later entries go to stdout.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	Logger.SetOutput(os.Stdout)
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// NewRequestID returns a fresh id for correlating log lines of one request
func NewRequestID() string {
	return uuid.NewString()
}

// WithFields creates a new entry with the given fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField creates a new entry with a single field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError creates a new entry with an error field
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

// WithRequestID creates a new entry tagged with a request id
func WithRequestID(requestID string) *logrus.Entry {
	if requestID == "" {
		requestID = "unknown"
	}
	return Logger.WithField(RequestIDKey, requestID)
}

// Info logs an info message
func Info(msg string) {
	Logger.Info(msg)
}

// Error logs an error message
func Error(msg string) {
	Logger.Error(msg)
}

// Debug logs a debug message
func Debug(msg string) {
	Logger.Debug(msg)
}

// Warn logs a warning message
func Warn(msg string) {
	Logger.Warn(msg)
}
