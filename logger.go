package neo4j

import "github.com/neo4j/neo4j-go-driver/v5/internal/db"

// Logger is the interface used to get logging out of the routing and
// pooling core; see internal/db.Logger. Adapters for zerolog, zap,
// logrus, log15 and go-kit/log live under the log/ subpackages.
type Logger = db.Logger
