package errcode

import (
	"fmt"
	"sort"
	"sync"
)

// Registry guards against two packages claiming the same code
type Registry struct {
	mu     sync.RWMutex
	codes  map[int]string // code -> module:msgKey
	locked bool
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{codes: make(map[int]string)}
}

// Register records err in the global registry and returns it, so sentinels can be
// declared as `var ErrX = errcode.Register(errcode.New(...))`
func Register(err *LayeredError) *LayeredError {
	return globalRegistry.Register(err)
}

// Register records err; a code reused under a different module:msgKey panics
func (r *Registry) Register(err *LayeredError) *LayeredError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		panic(fmt.Sprintf("registry is locked, cannot register error code: %d", err.Code()))
	}

	key := fmt.Sprintf("%s:%s", err.Module(), err.MsgKey())
	if existing, ok := r.codes[err.Code()]; ok {
		if existing != key {
			panic(fmt.Sprintf(
				"error code conflict: code %d is already registered as %s, cannot register as %s",
				err.Code(), existing, key,
			))
		}
		return err
	}

	r.codes[err.Code()] = key
	return err
}

// Lock rejects further registrations
func (r *Registry) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
}

// IsLocked reports whether the registry is locked
func (r *Registry) IsLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

// Codes returns the registered codes in ascending order
func (r *Registry) Codes() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]int, 0, len(r.codes))
	for code := range r.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Lookup returns the module:msgKey registered for code
func (r *Registry) Lookup(code int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.codes[code]
	return key, ok
}

// LookupCode searches the global registry
func LookupCode(code int) (string, bool) {
	return globalRegistry.Lookup(code)
}

// RegisteredCodes lists the codes in the global registry
func RegisteredCodes() []int {
	return globalRegistry.Codes()
}
