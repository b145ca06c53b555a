// Package zerologadapter adapts a github.com/rs/zerolog.Logger to
// neo4j.Logger.
package zerologadapter

import "github.com/rs/zerolog"

// Logger adapts a zerolog.Logger to neo4j.Logger.
type Logger struct {
	logger     zerolog.Logger
	skipModule bool
}

// option configures a Logger at construction time.
type option func(logger *Logger)

// WithoutModule disables adding module:neo4j to the default logger context.
func WithoutModule() option {
	return func(logger *Logger) {
		logger.skipModule = true
	}
}

// NewLogger wraps logger as a neo4j.Logger.
func NewLogger(logger zerolog.Logger, options ...option) *Logger {
	l := &Logger{logger: logger}
	for _, opt := range options {
		opt(l)
	}
	if !l.skipModule {
		l.logger = l.logger.With().Str("module", "neo4j").Logger()
	}
	return l
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.event(zerolog.DebugLevel, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.event(zerolog.InfoLevel, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.event(zerolog.WarnLevel, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.event(zerolog.ErrorLevel, msg, ctx) }

func (l *Logger) event(level zerolog.Level, msg string, ctx []interface{}) {
	event := l.logger.WithLevel(level)
	if !event.Enabled() {
		return
	}
	for i := 0; i+1 < len(ctx); i += 2 {
		if key, ok := ctx[i].(string); ok {
			event = event.Interface(key, ctx[i+1])
		}
	}
	event.Msg(msg)
}
