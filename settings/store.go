package settings

import (
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Store holds the validated settings and their source.
// Set overwrites; there is no merge or versioning.
type Store struct {
	mu     sync.RWMutex
	value  any
	source string
	loaded bool
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Set replaces the settings and source
func (s *Store) Set(value any, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.source = source
	s.loaded = true
}

// Get returns the settings, nil before the first Set
func (s *Store) Get() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Source returns where the settings came from, "" before the first Set
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// snapshot reads settings and source together, so a concurrent Set cannot
// pair one call's value with another's source
func (s *Store) snapshot() (any, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.source
}

// Loaded reports whether Set was called
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Decode copies the settings into target, a pointer to a struct or map.
// Struct fields are matched by their json tag.
func (s *Store) Decode(target any) error {
	s.mu.RLock()
	value, loaded := s.value, s.loaded
	s.mu.RUnlock()

	if !loaded {
		return ErrNotInitialized
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(value)
}
