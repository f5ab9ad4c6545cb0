package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap logger
type Logger struct {
	*zap.Logger
}

// New creates a JSON logger at the given level ("debug", "info", "warn",
// "error"). Development mode switches to the console encoder.
func New(level string, development bool) (*Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = ""

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if development && lvl > zapcore.DebugLevel {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: l}, nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With creates a child logger and adds structured context to it
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named adds a sub-scope to the logger's name
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}
