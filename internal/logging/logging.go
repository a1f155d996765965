package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/amosWeiskopf/geoscan/internal/config"
)

// New builds the process logger from the logging configuration
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console", "text":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.OutputPath != "" {
		zc.OutputPaths = []string{cfg.OutputPath}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
