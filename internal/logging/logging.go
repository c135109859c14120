// Package logging wires zerolog for the CLI and carries ledger event helpers.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log sinks. The file sink rotates through lumberjack.
type Config struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultConfig logs at info to stderr and to dir/tradelog.log.
func DefaultConfig(dir string) Config {
	return Config{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(dir, "tradelog.log"),
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     30,
	}
}

// NewLoggerWithConfig builds a timestamped logger over the configured sinks
// and sets the global level to match.
func NewLoggerWithConfig(cfg Config) zerolog.Logger {
	sinks := make([]io.Writer, 0, 2)

	// stderr keeps stdout clean for --json output.
	if cfg.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    color.NoColor,
		})
	}
	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			sinks = append(sinks, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var out io.Writer = io.Discard
	if len(sinks) == 1 {
		out = sinks[0]
	} else if len(sinks) > 1 {
		out = zerolog.MultiLevelWriter(sinks...)
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// parseLevel accepts zerolog level names and falls back to info.
func parseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

type ctxKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or a disabled one.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithAccount adds an account id to the logger context.
func WithAccount(logger zerolog.Logger, accountID string) zerolog.Logger {
	return logger.With().Str("account_id", accountID).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogTrade logs a trade ledger event.
func LogTrade(logger zerolog.Logger, action, accountID, tradeID, pair string, result, balance float64) {
	logger.Info().
		Str("event", "trade").
		Str("action", action).
		Str("account_id", accountID).
		Str("trade_id", tradeID).
		Str("pair", pair).
		Float64("result", result).
		Float64("balance", balance).
		Msg("Trade ledger updated")
}

// LogAccount logs an account lifecycle event.
func LogAccount(logger zerolog.Logger, action, accountID, name string, size float64) {
	logger.Info().
		Str("event", "account").
		Str("action", action).
		Str("account_id", accountID).
		Str("name", name).
		Float64("size", size).
		Msg("Account updated")
}

// LogWithdrawal logs a withdrawal event.
func LogWithdrawal(logger zerolog.Logger, action, accountID, withdrawalID string, amount, balance float64) {
	logger.Info().
		Str("event", "withdrawal").
		Str("action", action).
		Str("account_id", accountID).
		Str("withdrawal_id", withdrawalID).
		Float64("amount", amount).
		Float64("balance", balance).
		Msg("Withdrawal recorded")
}

// LogPersist logs the outcome of a save against the durable store.
func LogPersist(logger zerolog.Logger, key string, duration time.Duration, err error) {
	event := logger.Debug()
	msg := "Ledger persisted"
	if err != nil {
		event = logger.Error().Err(err)
		msg = "Ledger persist failed"
	}
	event.
		Str("event", "persist").
		Str("key", key).
		Dur("duration", duration).
		Msg(msg)
}
