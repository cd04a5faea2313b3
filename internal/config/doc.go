// Package config resolves runtime configuration for the console.
//
// Server settings are loaded from YAML files, environment variables and CLI
// flags with precedence: CLI flags > YAML config > Environment variables >
// Defaults. The console tunables under the rocketmq.config prefix are handed
// to a Resolver, which applies its own fallback chain (explicit value >
// process-wide property > environment variable > default) and publishes the
// registry address and VIP channel flag back into the process-wide property
// store for subsystems that only know the well-known keys.
package config
