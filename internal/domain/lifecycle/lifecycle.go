// Package lifecycle holds shared timeouts for component startup and
// shutdown hooks.
package lifecycle

import "time"

// DefaultTimeout bounds how long a component may take to start or stop.
const DefaultTimeout = 10 * time.Second
