package routing

import (
	"github.com/rs/zerolog"
)

// The package is a library; it stays silent unless the embedding service
// hands it a logger through Config.Logger or SetLogger.
var defaultLogger = zerolog.Nop()

// SetLogger replaces the logger used by routers constructed without an
// explicit one. Intended to be called once at service startup.
func SetLogger(logger zerolog.Logger) {
	defaultLogger = logger
}
