package envstore

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/joho/godotenv"
)

// ReadExports parses an export file written by Export.
func ReadExports(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read exports %s: %w", path, err)
	}

	return values, nil
}

// MapStore is an in-memory Store. Exports are kept in order so callers can
// assert on what a step hands to the next one.
type MapStore struct {
	mu       sync.Mutex
	values   map[string]string
	exported []string
	revision uint64
}

// NewMapStore creates a store seeded with values.
func NewMapStore(values map[string]string) *MapStore {
	seed := make(map[string]string, len(values))
	maps.Copy(seed, values)

	return &MapStore{values: seed}
}

// Lookup returns the value of key and whether it is set.
func (ms *MapStore) Lookup(key string) (string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	value, ok := ms.values[key]

	return value, ok
}

// Get returns the value of key or an empty string.
func (ms *MapStore) Get(key string) string {
	value, _ := ms.Lookup(key)

	return value
}

// Set stores value under key.
func (ms *MapStore) Set(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.values[key] = value
	ms.revision++

	return nil
}

// Unset removes key.
func (ms *MapStore) Unset(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.values, key)
	ms.revision++

	return nil
}

// Export stores value and records key as exported.
func (ms *MapStore) Export(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.values[key] = value
	ms.revision++

	if !slices.Contains(ms.exported, key) {
		ms.exported = append(ms.exported, key)
	}

	return nil
}

// Environ returns the stored values in KEY=VALUE form, sorted by key.
func (ms *MapStore) Environ() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	environ := make([]string, 0, len(ms.values))
	for _, key := range slices.Sorted(maps.Keys(ms.values)) {
		environ = append(environ, key+"="+ms.values[key])
	}

	return environ
}

// Revision counts mutations.
func (ms *MapStore) Revision() uint64 {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.revision
}

// Exported returns the keys passed to Export, in first-export order.
func (ms *MapStore) Exported() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return slices.Clone(ms.exported)
}

var (
	_ Store = (*ProcessStore)(nil)
	_ Store = (*MapStore)(nil)
)
