// internal/logging/logger.go
// Package logging holds the process-wide zap logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrInvalidRotation indicates a negative rotation limit
var ErrInvalidRotation = errors.New("log rotation limits must be non-negative")

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Config selects the log level and an optional rotating file sink.
type Config struct {
	// Level is one of debug, info, warn, error (from config: log_level)
	Level string
	// File enables JSON logging to a rotated file when non-empty (from config: log_file)
	File string
	// MaxSizeMB is the size that triggers rotation (from config: log_max_size_mb)
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept (from config: log_max_backups)
	MaxBackups int
	// MaxAgeDays is how long rotated files are kept (from config: log_max_age_days)
	MaxAgeDays int
	// Compress gzips rotated files (from config: log_compress)
	Compress bool
}

// Logger returns the current logger. It is a no-op logger until SetLogger
// is called, so library builds stay silent.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the process logger. A nil logger restores the no-op one.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// New builds a logger writing human-readable lines to console and, when
// cfg.File is set, JSON lines to a lumberjack-rotated file.
func New(cfg Config, console io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0 {
		return nil, ErrInvalidRotation
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}

	if cfg.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(newFileWriter(cfg)),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// newFileWriter creates a lumberjack file writer for log rotation.
func newFileWriter(cfg Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
