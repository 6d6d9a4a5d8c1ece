package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"openfront/engine/internal/config"
)

type contextKey string

var (
	loggerContextKey = contextKey("engine-logger")

	globalMu     sync.RWMutex
	globalLogger = NewTestLogger()
)

// Field is a structured logging attribute.
type Field = zap.Field

// String returns a string field.
func String(key, value string) Field { return zap.String(key, value) }

// Strings returns a string slice field.
func Strings(key string, values []string) Field { return zap.Strings(key, values) }

// Int returns an int field.
func Int(key string, value int) Field { return zap.Int(key, value) }

// Int64 returns an int64 field.
func Int64(key string, value int64) Field { return zap.Int64(key, value) }

// Uint64 returns a uint64 field.
func Uint64(key string, value uint64) Field { return zap.Uint64(key, value) }

// Float64 returns a float64 field.
func Float64(key string, value float64) Field { return zap.Float64(key, value) }

// Bool returns a bool field.
func Bool(key string, value bool) Field { return zap.Bool(key, value) }

// Duration returns a duration field.
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }

// Error returns an error field.
func Error(err error) Field { return zap.Error(err) }

// Logger wraps a zap logger together with the level it can adjust at runtime.
type Logger struct {
	z     *zap.Logger
	level zap.AtomicLevel
	file  *lumberjack.Logger
}

// New builds a logger that writes human-readable lines to stderr and JSON lines to a
// rotated file. It also becomes the global fallback logger.
func New(cfg config.LoggingConfig) (*Logger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("logging path must be specified")
	}
	if cfg.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("ENGINE_LOG_MAX_SIZE_MB must be positive")
	}
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	atomic := zap.NewAtomicLevelAt(level)

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	fileCfg := encoderCfg
	fileCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: max(0, cfg.MaxBackups),
		MaxAge:     max(0, cfg.MaxAgeDays),
		Compress:   cfg.Compress,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), atomic),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), atomic),
	)
	logger := &Logger{
		z:     zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named("engine"),
		level: atomic,
		file:  file,
	}
	ReplaceGlobals(logger)
	return logger, nil
}

// NewTestLogger returns a logger that discards output.
func NewTestLogger() *Logger {
	return &Logger{z: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// NewObserved wraps an existing core, which tests use to capture entries.
func NewObserved(core zapcore.Core) *Logger {
	return &Logger{z: zap.New(core), level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// ReplaceGlobals swaps the fallback logger used when no context logger is present.
func ReplaceGlobals(logger *Logger) {
	if logger == nil {
		return
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// L returns the current global logger.
func L() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLevel changes the verbosity of this logger and every logger derived from it.
func (l *Logger) SetLevel(raw string) error {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	l.level.SetLevel(level)
	return nil
}

// Level reports the active verbosity.
func (l *Logger) Level() string { return l.level.Level().String() }

// With augments the logger with additional structured fields.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return L().With(fields...)
	}
	return &Logger{z: l.z.With(fields...), level: l.level, file: l.file}
}

// Sync flushes buffered output and closes the current log file. Later writes reopen it.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	//1.- Stderr sync fails on some terminals, so only the file result is reported.
	_ = l.z.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Debug(message string, fields ...Field) { l.zap().Debug(message, fields...) }
func (l *Logger) Info(message string, fields ...Field)  { l.zap().Info(message, fields...) }
func (l *Logger) Warn(message string, fields ...Field)  { l.zap().Warn(message, fields...) }
func (l *Logger) Error(message string, fields ...Field) { l.zap().Error(message, fields...) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(message string, fields ...Field) { l.zap().Fatal(message, fields...) }

func (l *Logger) zap() *zap.Logger {
	if l == nil || l.z == nil {
		return L().z
	}
	return l.z
}

// ContextWithLogger stores a logger in the provided context.
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext retrieves a logger from context or falls back to the global logger.
func LoggerFromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return L()
	}
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok && logger != nil {
		return logger
	}
	return L()
}
