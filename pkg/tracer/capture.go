// Package tracer captures per-language build tracer configurations and
// merges them into one compound configuration that observes a single build.
package tracer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/swissknife/pkg/codeql"
)

// Tracer variable names.
const (
	// SpecKey points the tracer at its spec file.
	SpecKey = "ODASA_TRACER_CONFIGURATION"
	// CopyExecutablesKey asks the tracer to copy intercepted executables.
	CopyExecutablesKey = "SEMMLE_COPY_EXECUTABLES_ROOT"
	// ToolPrefix marks variables owned by the analysis tool.
	ToolPrefix = "CODEQL_"
)

// criticalVars are kept even when the parent environment already has them.
var criticalVars = map[string]bool{
	"SEMMLE_PRELOAD_libtrace":  true,
	"SEMMLE_RUNNER":            true,
	CopyExecutablesKey:         true,
	"SEMMLE_DEPTRACE_SOCKET":   true,
	"SEMMLE_JAVA_TOOL_OPTIONS": true,
}

// ErrMissingSpec is returned when a captured environment has no SpecKey.
var ErrMissingSpec = errors.New("traced environment has no " + SpecKey)

// Config is the tracer configuration of one language, or of several after merging.
type Config struct {
	Spec string
	Env  map[string]string
}

// Lookup reads a variable of the orchestrator's environment.
type Lookup interface {
	Lookup(key string) (string, bool)
}

// Filter extracts a Config from the environment captured under the tracer.
// A variable is kept when parent lacks it, when it is critical to the
// tracer or when it carries ToolPrefix. SpecKey becomes Config.Spec.
func Filter(snapshot map[string]string, parent Lookup) Config {
	cfg := Config{Spec: snapshot[SpecKey], Env: make(map[string]string)}

	for key, value := range snapshot {
		if key == SpecKey {
			continue
		}

		_, inherited := parent.Lookup(key)
		if !inherited || criticalVars[key] || strings.HasPrefix(key, ToolPrefix) {
			cfg.Env[key] = value
		}
	}

	return cfg
}

// WriteSnapshot stores environ, in KEY=VALUE form, as a JSON object.
func WriteSnapshot(path string, environ []string) error {
	snapshot := make(map[string]string, len(environ))

	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if ok && key != "" {
			snapshot[key] = value
		}
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode environment: %w", err)
	}

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return fmt.Errorf("write environment snapshot: %w", err)
	}

	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read environment snapshot: %w", err)
	}

	var snapshot map[string]string

	err = json.Unmarshal(data, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("decode environment snapshot %s: %w", path, err)
	}

	return snapshot, nil
}

// SnapshotPath is where the environment of db's traced helper is written.
func SnapshotPath(db string) string {
	return filepath.Join(db, "working", "env.tmp")
}

// Capturer derives tracer configurations by running a helper under the
// tool's trace-command. The helper is this binary's tracer-env command.
type Capturer struct {
	CLI *codeql.CLI
	// Helper is the command line that writes the environment to the path appended to it.
	Helper []string
	Parent Lookup
}

// Capture returns the filtered tracer configuration of database db.
func (c *Capturer) Capture(ctx context.Context, db, compilerSpec string) (Config, error) {
	snapshotPath := SnapshotPath(db)

	err := os.MkdirAll(filepath.Dir(snapshotPath), 0o755)
	if err != nil {
		return Config{}, fmt.Errorf("create working directory: %w", err)
	}

	helper := append(append([]string{}, c.Helper...), snapshotPath)

	err = c.CLI.TraceCommand(ctx, db, compilerSpec, helper...)
	if err != nil {
		return Config{}, err
	}

	snapshot, err := ReadSnapshot(snapshotPath)
	if err != nil {
		return Config{}, err
	}

	cfg := Filter(snapshot, c.Parent)
	if cfg.Spec == "" {
		return Config{}, fmt.Errorf("%s: %w", db, ErrMissingSpec)
	}

	return cfg, nil
}
