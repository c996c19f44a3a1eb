package logging

import (
	"github.com/rs/zerolog"
)

// ComponentKey is the field that names the service a log line came from.
const ComponentKey = "component"

// Component derives a logger tagged with the component name. Context fields
// (item_id, op) still come from ContextHook when the event uses Ctx.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str(ComponentKey, name).Logger()
}
