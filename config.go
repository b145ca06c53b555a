package neo4j

import "github.com/neo4j/neo4j-go-driver/v5/internal/db"

// LogLevel mirrors the teacher's pgx.LogLevel.
type LogLevel = db.LogLevel

const (
	LogLevelNone  = db.LogLevelNone
	LogLevelError = db.LogLevelError
	LogLevelWarn  = db.LogLevelWarn
	LogLevelInfo  = db.LogLevelInfo
	LogLevelDebug = db.LogLevelDebug
	LogLevelTrace = db.LogLevelTrace
)

// Config carries every option the core recognizes (spec §6.4) plus the
// ambient logging/tracing knobs; see internal/db.Config.
type Config = db.Config

// NewConfig returns a Config with every documented default applied.
func NewConfig() *Config { return db.NewConfig() }
