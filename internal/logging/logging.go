// Package logging wraps zerolog behind the teacher's own chainable logger
// API shape (WithComponent/WithField/WithError returning a derived
// logger), rather than a second hand-rolled implementation -- zerolog is
// already a direct dependency used elsewhere in the corpus.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a small chainable wrapper over zerolog.Logger.
type Logger struct {
	z zerolog.Logger
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// New constructs a Logger writing JSON lines to w.
func New(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	z := zerolog.New(w).With().Timestamp().Logger()
	return Logger{z: z}
}

// NewConsole constructs a Logger writing human-readable console output,
// for local/dev runs.
func NewConsole(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return Logger{z: zerolog.New(cw).With().Timestamp().Logger()}
}

// Default returns the process-wide default logger (console, stdout),
// built lazily on first use unless SetDefault has already been called.
func Default() Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		l := NewConsole(os.Stdout)
		defaultLogger = &l
	}
	return *defaultLogger
}

// SetDefault overrides the process-wide default logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = &l
}

// WithComponent returns a derived logger tagging every entry with
// component.
func (l Logger) WithComponent(component string) Logger {
	return Logger{z: l.z.With().Str("component", component).Logger()}
}

// WithField returns a derived logger with one extra structured field.
func (l Logger) WithField(key string, value any) Logger {
	return Logger{z: l.z.With().Interface(key, value).Logger()}
}

// WithFields returns a derived logger with several extra structured
// fields.
func (l Logger) WithFields(fields map[string]any) Logger {
	ctx := l.z.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return Logger{z: ctx.Logger()}
}

// WithError returns a derived logger carrying err as a structured field.
func (l Logger) WithError(err error) Logger {
	return Logger{z: l.z.With().Err(err).Logger()}
}

func (l Logger) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l Logger) Info(msg string)  { l.z.Info().Msg(msg) }
func (l Logger) Warn(msg string)  { l.z.Warn().Msg(msg) }
func (l Logger) Error(msg string) { l.z.Error().Msg(msg) }

// Debugf/Infof/Warnf/Errorf mirror the teacher's printf-style convenience
// wrappers.
func (l Logger) Debugf(format string, args ...any) { l.z.Debug().Msgf(format, args...) }
func (l Logger) Infof(format string, args ...any)  { l.z.Info().Msgf(format, args...) }
func (l Logger) Warnf(format string, args ...any)  { l.z.Warn().Msgf(format, args...) }
func (l Logger) Errorf(format string, args ...any) { l.z.Error().Msgf(format, args...) }
