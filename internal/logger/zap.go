package logger

import "go.uber.org/zap"

// ZapAdapter wraps a zap.SugaredLogger to implement the Logger interface.
// The sugared form accepts the same loosely-typed key-value pairs the
// Logger interface carries.
type ZapAdapter struct {
	logger *zap.SugaredLogger
}

// NewZapAdapter creates a logger adapter wrapping a zap logger.
// The provided logger must not be nil.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger.Sugar()}
}

// Debug logs a debug-level message with structured key-value pairs.
func (a *ZapAdapter) Debug(msg string, args ...any) {
	a.logger.Debugw(msg, args...)
}

// Info logs an info-level message with structured key-value pairs.
func (a *ZapAdapter) Info(msg string, args ...any) {
	a.logger.Infow(msg, args...)
}

// Warn logs a warning-level message with structured key-value pairs.
func (a *ZapAdapter) Warn(msg string, args ...any) {
	a.logger.Warnw(msg, args...)
}

// Error logs an error-level message with structured key-value pairs.
func (a *ZapAdapter) Error(msg string, args ...any) {
	a.logger.Errorw(msg, args...)
}
