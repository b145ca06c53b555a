package db

// Logger is the interface used to get logging out of the routing and
// pooling core. https://github.com/inconshreveable/log15 is the
// interface this one was extracted from; any logging package can be
// adapted to it, see the log/ subpackages for ready-made adapters.
type Logger interface {
	// Log a message at the given level with context key/value pairs.
	// ctx is a flat list of alternating keys and values, e.g.
	// Debug("acquired connection", "address", addr, "db", db).
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

type discardLogger struct{}

func (discardLogger) Debug(msg string, ctx ...interface{}) {}
func (discardLogger) Info(msg string, ctx ...interface{})  {}
func (discardLogger) Warn(msg string, ctx ...interface{})  {}
func (discardLogger) Error(msg string, ctx ...interface{}) {}

// NewAddressLogger wraps logger so every line it emits is tagged with
// address, the way the teacher's connLogger tags every line with a
// backend pid. Used by the pool to log per-connection lifecycle events
// without repeating the address key at every call site.
func NewAddressLogger(logger Logger, address string) Logger {
	return &addressLogger{logger: logger, address: address}
}

// addressLogger tags every line it emits with the peer address, the way
// the teacher's connLogger tags every line with a backend pid.
type addressLogger struct {
	logger  Logger
	address string
}

func (l *addressLogger) Debug(msg string, ctx ...interface{}) {
	l.logger.Debug(msg, append(ctx, "address", l.address)...)
}

func (l *addressLogger) Info(msg string, ctx ...interface{}) {
	l.logger.Info(msg, append(ctx, "address", l.address)...)
}

func (l *addressLogger) Warn(msg string, ctx ...interface{}) {
	l.logger.Warn(msg, append(ctx, "address", l.address)...)
}

func (l *addressLogger) Error(msg string, ctx ...interface{}) {
	l.logger.Error(msg, append(ctx, "address", l.address)...)
}
