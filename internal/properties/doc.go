// Package properties models process-wide key/value state that several
// subsystems read by well-known key, plus the environment lookups used as
// fallbacks. Both are interfaces so components can be tested against isolated
// instances instead of mutating real process state.
package properties
