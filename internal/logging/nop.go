package logging

import "github.com/profscale/profscale/types"

// NopLogger discards all log messages.
type NopLogger struct{}

// Compile-time assertion that NopLogger implements Logger.
var _ types.Logger = (*NopLogger)(nil)

// NewNop creates a new no-op logger.
//
// Returns:
//   - *NopLogger: A logger that discards everything
func NewNop() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (*NopLogger) Debug(_ string, _ ...any) {}

// Info discards the message.
func (*NopLogger) Info(_ string, _ ...any) {}

// Warn discards the message.
func (*NopLogger) Warn(_ string, _ ...any) {}

// Error discards the message.
func (*NopLogger) Error(_ string, _ ...any) {}

// Fatal discards the message. Unlike real loggers it does not exit, which is
// what callers want from a no-op implementation.
func (*NopLogger) Fatal(_ string, _ ...any) {}
