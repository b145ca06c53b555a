// Package logrusadapter adapts a github.com/sirupsen/logrus.Logger to
// neo4j.Logger.
package logrusadapter

import "github.com/sirupsen/logrus"

// Logger adapts a *logrus.Logger to neo4j.Logger.
type Logger struct {
	l *logrus.Logger
}

// NewLogger wraps l as a neo4j.Logger.
func NewLogger(l *logrus.Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.fields(ctx).Debug(msg) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.fields(ctx).Info(msg) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.fields(ctx).Warn(msg) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.fields(ctx).Error(msg) }

// fields converts the alternating key/value pairs neo4j.Logger passes
// into logrus.Fields, ignoring a trailing unpaired key.
func (l *Logger) fields(ctx []interface{}) logrus.FieldLogger {
	if len(ctx) == 0 {
		return l.l
	}
	fields := make(logrus.Fields, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		fields[key] = ctx[i+1]
	}
	return l.l.WithFields(fields)
}
