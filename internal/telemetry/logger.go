// Package telemetry provides the zap-backed structured logger that
// satisfies merkletree.Logger, which cmd/merkletree-cli wires into every
// opened tree.
package telemetry

import (
	"go.uber.org/zap"
)

// Logger wraps a zap.SugaredLogger to satisfy merkletree.Logger's minimal
// Infow/Warnw surface.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger appropriate for production use: JSON-encoded,
// info-level, with caller annotations and stacktraces on errors and above.
func New() (*Logger, error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zl.Sugar()}, nil
}

// NewDevelopment builds a Logger with human-readable console output,
// suited to cmd/merkletree-cli's interactive subcommands.
func NewDevelopment() (*Logger, error) {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zl.Sugar()}, nil
}

// Infow implements merkletree.Logger.
func (l *Logger) Infow(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warnw implements merkletree.Logger.
func (l *Logger) Warnw(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries. Callers should defer Sync after
// constructing a Logger.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
