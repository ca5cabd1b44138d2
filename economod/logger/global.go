package logger

import (
	"log/slog"
	"time"
)

// LogLedger logs a ledger operation.
func LogLedger(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "ledger")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogMarket logs a stock market operation.
func LogMarket(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "market")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogAuction logs an auction operation.
func LogAuction(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "auction")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogSweep logs a periodic sweep with its duration.
func LogSweep(name string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "ledger"),
		slog.String("sweep", name),
		slog.Duration("took", duration),
	}
	if err != nil {
		slog.Error("Sweep failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Sweep completed", attrs...)
	}
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
