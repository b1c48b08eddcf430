// Package obslog is a small leveled-logger facade used by the config and
// metrics packages for their own diagnostics (parse failures, metric
// registration). It is not on the hot path of any cache operation.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a trimmed leveled logger: just the handful of methods config
// and metrics actually call.
type Logger struct {
	zl zerolog.Logger
}

// New creates a Logger writing to out. A nil out defaults to os.Stderr.
func New(out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	return &Logger{zl: zerolog.New(out).With().Timestamp().Logger()}
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// Default is the package-level logger used by config and metrics unless a
// caller wires in their own via SetDefault.
var Default = New(nil) //nolint:gochecknoglobals

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	Default = l
}
