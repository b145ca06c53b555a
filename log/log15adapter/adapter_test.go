package log15adapter_test

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/log/log15adapter"
)

type recordingLog15Logger struct {
	level string
	msg   string
	ctx   []interface{}
}

func (r *recordingLog15Logger) Debug(msg string, ctx ...interface{}) { r.record("debug", msg, ctx) }
func (r *recordingLog15Logger) Info(msg string, ctx ...interface{})  { r.record("info", msg, ctx) }
func (r *recordingLog15Logger) Warn(msg string, ctx ...interface{})  { r.record("warn", msg, ctx) }
func (r *recordingLog15Logger) Error(msg string, ctx ...interface{}) { r.record("error", msg, ctx) }

func (r *recordingLog15Logger) record(level, msg string, ctx []interface{}) {
	r.level = level
	r.msg = msg
	r.ctx = ctx
}

func TestLoggerDelegatesByLevel(t *testing.T) {
	rec := &recordingLog15Logger{}
	logger := log15adapter.NewLogger(rec)

	logger.Warn("boom", "address", "localhost:7687")

	if rec.level != "warn" || rec.msg != "boom" {
		t.Fatalf("got level=%s msg=%s", rec.level, rec.msg)
	}
	if len(rec.ctx) != 2 || rec.ctx[0] != "address" || rec.ctx[1] != "localhost:7687" {
		t.Fatalf("unexpected ctx %v", rec.ctx)
	}
}
