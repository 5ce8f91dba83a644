// Package envstore provides typed access to the process environment and to
// the export file that carries variables from one CI step to the next.
package envstore

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// Sentinel errors.
var (
	// ErrMissingVariable is returned when a required variable is unset.
	ErrMissingVariable = errors.New("environment variable must be set")
	// ErrNoExportSink is returned by Export when no export file is configured.
	ErrNoExportSink = errors.New("no export file configured")
)

// Store is a versioned key-value view of the environment.
// Export makes a value visible to the current process and to later
// invocations in the same job.
type Store interface {
	Lookup(key string) (string, bool)
	Get(key string) string
	Set(key, value string) error
	Unset(key string) error
	Export(key, value string) error
	Environ() []string
	Revision() uint64
}

// Required returns the value of key or an error naming the missing variable.
func Required(store Store, key string) (string, error) {
	value, ok := store.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrMissingVariable)
	}

	return value, nil
}

// ProcessStore is the production Store backed by os.Environ and an
// append-only export file.
type ProcessStore struct {
	sink     string
	revision atomic.Uint64
}

// NewProcessStore creates a store exporting to sink. Variables previously
// exported to sink that are absent from the process environment are loaded
// into it, so a step that did not source the file still sees them.
func NewProcessStore(sink string) (*ProcessStore, error) {
	store := &ProcessStore{sink: sink}

	if sink == "" {
		return store, nil
	}

	exported, err := ReadExports(sink)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}

		return nil, err
	}

	for _, key := range slices.Sorted(maps.Keys(exported)) {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}

		setErr := os.Setenv(key, exported[key])
		if setErr != nil {
			return nil, fmt.Errorf("hydrate %s: %w", key, setErr)
		}
	}

	return store, nil
}

// Sink returns the export file path.
func (ps *ProcessStore) Sink() string {
	return ps.sink
}

// Lookup returns the value of key and whether it is set.
func (ps *ProcessStore) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Get returns the value of key or an empty string.
func (ps *ProcessStore) Get(key string) string {
	return os.Getenv(key)
}

// Set updates the process environment.
func (ps *ProcessStore) Set(key, value string) error {
	err := os.Setenv(key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	ps.revision.Add(1)

	return nil
}

// Unset removes key from the process environment.
func (ps *ProcessStore) Unset(key string) error {
	err := os.Unsetenv(key)
	if err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}

	ps.revision.Add(1)

	return nil
}

// Export sets key in the process and appends it to the export file.
func (ps *ProcessStore) Export(key, value string) error {
	if ps.sink == "" {
		return fmt.Errorf("export %s: %w", key, ErrNoExportSink)
	}

	f, err := os.OpenFile(ps.sink, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}

	_, writeErr := f.WriteString(ExportLine(key, value))
	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("write export file: %w", writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close export file: %w", closeErr)
	}

	return ps.Set(key, value)
}

// Environ returns the process environment in KEY=VALUE form.
func (ps *ProcessStore) Environ() []string {
	return os.Environ()
}

// Revision counts mutations made through this store.
func (ps *ProcessStore) Revision() uint64 {
	return ps.revision.Load()
}

// ExportLine renders one bash export statement with a double-quoted value.
func ExportLine(key, value string) string {
	return "export " + key + "=\"" + quoteReplacer.Replace(value) + "\"\n"
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
