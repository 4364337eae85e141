// Package logging provides a level-aware structured logger for the
// accumulator, emitting records tagged with a syslog-style facility and
// component tag (e.g. facility "user", tag "aesdsocket" or "aesdchar").
package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config holds logging configuration.
type Config struct {
	Level  LogLevel
	Output io.Writer
	// Facility and Tag are carried on every record as structured fields,
	// matching the syslog-style records required of the server and
	// device surfaces.
	Facility string
	Tag      string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:    LevelInfo,
		Output:   os.Stderr,
		Facility: "user",
	}
}

// Logger wraps a zap.SugaredLogger with facility/tag fields baked in.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger from config. A nil config uses
// DefaultConfig.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(output),
		config.Level.zapLevel(),
	)

	sugar := zap.New(core).Sugar()

	var fields []interface{}
	if config.Facility != "" {
		fields = append(fields, "facility", config.Facility)
	}
	if config.Tag != "" {
		fields = append(fields, "tag", config.Tag)
	}
	if len(fields) > 0 {
		sugar = sugar.With(fields...)
	}

	return &Logger{sugar: sugar}
}

// WithTag returns a derived logger carrying an additional "tag" field,
// used to distinguish the server ("aesdsocket") from the device
// ("aesdchar") in a shared process.
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{sugar: l.sugar.With("tag", tag)}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }

// Printf satisfies callers that only want plain printf-style logging at
// info level.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Default returns the process-wide default logger, creating it lazily.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault installs logger as the process-wide default.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
