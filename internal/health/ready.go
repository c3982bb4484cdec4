package health

import "sync/atomic"

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the global readiness gate. The server marks itself not
// ready at the start of graceful shutdown so load balancers drain traffic.
func SetReady(v bool) { ready.Store(v) }

// IsReady reports the current readiness gate state.
func IsReady() bool { return ready.Load() }
