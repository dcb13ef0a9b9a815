package logging

import (
	"fmt"
	"log/slog"

	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger provides access to both the tagged logger and slog APIs.
type Logger struct {
	base *utils.Logger
}

// New creates a new Logger instance backed by the utils logger.
func New(cfg Config) (*Logger, error) {
	logCfg := &utils.LogCfg{
		LogLevel: cfg.Level,
		LogDir:   cfg.Dir,
		LogFile:  cfg.Filename,
	}
	base, err := utils.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise logging: %w", err)
	}
	return &Logger{base: base}, nil
}

// Base exposes the underlying tagged logger.
func (l *Logger) Base() *utils.Logger {
	return l.base
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	return l.base.Slog()
}
