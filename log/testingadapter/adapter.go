// Package testingadapter provides a logger that writes to a test or
// benchmark log.
package testingadapter

import "fmt"

// TestingLogger is the subset of testing.TB used by this adapter.
type TestingLogger interface {
	Log(args ...interface{})
}

// Logger adapts a TestingLogger to neo4j.Logger.
type Logger struct {
	l TestingLogger
}

// NewLogger wraps l as a neo4j.Logger.
func NewLogger(l TestingLogger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log("DEBUG", msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log("INFO", msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log("WARN", msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log("ERROR", msg, ctx) }

func (l *Logger) log(level, msg string, ctx []interface{}) {
	args := make([]interface{}, 0, 2+len(ctx)/2)
	args = append(args, level, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		args = append(args, fmt.Sprintf("%v=%v", ctx[i], ctx[i+1]))
	}
	l.l.Log(args...)
}
