package logzerolog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-pagecache/pagecache"
	"github.com/rs/zerolog"
)

var _ pagecache.Logger = (*Logger)(nil)

// Logger adapts a zerolog.Logger to pagecache.Logger.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger wraps an existing zerolog logger.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

// New builds a logger writing to w at level. Pretty selects the console
// writer instead of JSON lines.
func New(w io.Writer, level string, pretty bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	return &Logger{logger: logger}
}

// ParseLevel falls back to info for empty or unknown levels.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// With returns a child logger tagged with component.
func (l *Logger) With(component string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", component).Logger()}
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}
