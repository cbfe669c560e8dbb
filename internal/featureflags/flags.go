package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// SessionDebug exposes the session listing and wipe commands in the CLI
	SessionDebug = "session_debug"
	// OrderFeed enables the websocket order feed on the server
	OrderFeed = "order_feed"
)

// Enabled reports whether a flag is on.
// Flags are read from env as FLAG_<NAME>=true/1/yes/on (case-insensitive).
func Enabled(name string) bool {
	return EnabledOr(name, false)
}

// EnabledOr is Enabled with a default for an unset variable
func EnabledOr(name string, def bool) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
