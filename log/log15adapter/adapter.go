// Package log15adapter adapts a github.com/inconshreveable/log15.Logger
// to neo4j.Logger.
package log15adapter

// Log15Logger is the subset of log15.Logger this adapter uses; its
// shape is already Debug/Info/Warn/Error(msg string, ctx ...interface{}),
// identical to neo4j.Logger, so the adapter is a thin rename.
type Log15Logger interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

// Logger adapts a Log15Logger to neo4j.Logger.
type Logger struct {
	l Log15Logger
}

// NewLogger wraps l as a neo4j.Logger.
func NewLogger(l Log15Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.l.Debug(msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.l.Info(msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.l.Warn(msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.l.Error(msg, ctx...) }
