package properties

import (
	"maps"
	"os"
	"sync"
)

// Env resolves environment variables.
type Env interface {
	Lookup(key string) (string, bool)
}

// OSEnv reads the real process environment.
type OSEnv struct{}

// Lookup wraps os.LookupEnv.
func (OSEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv is a mutable environment backed by a map, safe for concurrent use.
type MapEnv struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMapEnv returns a MapEnv seeded with vars.
func NewMapEnv(vars map[string]string) *MapEnv {
	env := &MapEnv{vars: make(map[string]string, len(vars))}
	maps.Copy(env.vars, vars)
	return env
}

func (e *MapEnv) Lookup(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.vars[key]
	return v, ok
}

// Setenv sets key to value.
func (e *MapEnv) Setenv(key, value string) {
	e.mu.Lock()
	e.vars[key] = value
	e.mu.Unlock()
}

// Unsetenv removes key.
func (e *MapEnv) Unsetenv(key string) {
	e.mu.Lock()
	delete(e.vars, key)
	e.mu.Unlock()
}
