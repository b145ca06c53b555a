// Package kitlogadapter adapts a github.com/go-kit/kit/log.Logger to
// neo4j.Logger.
package kitlogadapter

import (
	"github.com/go-kit/kit/log"
	kitlevel "github.com/go-kit/kit/log/level"
)

// Logger adapts a log.Logger to neo4j.Logger.
type Logger struct {
	l log.Logger
}

// NewLogger wraps l as a neo4j.Logger.
func NewLogger(l log.Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { kitlevel.Debug(l.with(ctx)).Log("msg", msg) }
func (l *Logger) Info(msg string, ctx ...interface{})  { kitlevel.Info(l.with(ctx)).Log("msg", msg) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { kitlevel.Warn(l.with(ctx)).Log("msg", msg) }
func (l *Logger) Error(msg string, ctx ...interface{}) { kitlevel.Error(l.with(ctx)).Log("msg", msg) }

// with attaches the key/value pairs neo4j.Logger passes as extra log.Logger
// context, dropping a trailing unpaired key.
func (l *Logger) with(ctx []interface{}) log.Logger {
	if len(ctx) == 0 {
		return l.l
	}
	if len(ctx)%2 != 0 {
		ctx = ctx[:len(ctx)-1]
	}
	return log.With(l.l, ctx...)
}
