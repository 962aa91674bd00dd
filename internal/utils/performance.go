package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// OperationTimer provides a defer-friendly way to measure operation duration.
// Operations slower than slow are logged at warn level.
//
// Usage:
//
//	func (e *Engine) Tick(ctx context.Context) {
//	    defer utils.OperationTimer("automation_tick", e.interval, e.log)()
//	}
func OperationTimer(operation string, slow time.Duration, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		duration := time.Since(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if slow > 0 && duration > slow {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Dur("threshold", slow).
				Msg("Slow operation detected")
		}
	}
}
