package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a logger emits
type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// Logger is the logging surface used across services and adapters
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	With(args ...interface{}) Logger
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (l *zapLogger) With(args ...interface{}) Logger {
	return &zapLogger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// ParseLevel converts a config string to a Level, defaulting to Info
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Info, nil
	case Debug:
		return Debug, nil
	case Info:
		return Info, nil
	case Warn, "warning":
		return Warn, nil
	case Error:
		return Error, nil
	default:
		return Info, fmt.Errorf("unknown log level %q", s)
	}
}

// NewZapLogger builds a production zap logger at the given level.
// The returned func flushes buffered entries and should be deferred by main.
func NewZapLogger(level Level) (Logger, func(), error) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("%w: can't parse log level", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level == Debug {
		cfg.Development = true
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't build zap logger", err)
	}

	sync := func() { _ = l.Sync() }
	return &zapLogger{SugaredLogger: l.Sugar()}, sync, nil
}

// Nop returns a logger that discards everything, for tests
func Nop() Logger {
	return &zapLogger{SugaredLogger: zap.NewNop().Sugar()}
}
