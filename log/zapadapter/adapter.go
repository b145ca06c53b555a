// Package zapadapter adapts a go.uber.org/zap.Logger to neo4j.Logger.
package zapadapter

import "go.uber.org/zap"

// Logger adapts a *zap.Logger to neo4j.Logger via its sugared API, whose
// level methods already take (msg string, keysAndValues ...interface{}).
type Logger struct {
	l *zap.SugaredLogger
}

// NewLogger wraps l as a neo4j.Logger.
func NewLogger(l *zap.Logger) *Logger {
	return &Logger{l: l.Sugar()}
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.l.Debugw(msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.l.Infow(msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.l.Warnw(msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.l.Errorw(msg, ctx...) }
