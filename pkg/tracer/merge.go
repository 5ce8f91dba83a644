package tracer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
)

// Files written by Merger into its temp directory.
const (
	SpecFileName        = "compound-spec"
	EnvironmentSuffix   = ".environment"
	LogFileName         = "compound-build-tracer.log"
	CopyExecutablesDir  = "compound-temp"
	specFileMode        = 0o644
	compoundTempDirMode = 0o755
)

// ErrTracerConflict is matched by every ConflictError.
var ErrTracerConflict = errors.New("incompatible tracer environments")

// ConflictError reports two languages that need different values for one variable.
type ConflictError struct {
	Key    string
	First  string
	Second string
}

// Error implements error.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("Incompatible values in environment parameter %s: %s and %s", e.Key, e.First, e.Second)
}

// Is matches ErrTracerConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrTracerConflict
}

// Traced is the tracer configuration captured for one language.
type Traced struct {
	Language languages.Language
	Config   Config
}

// Compound is the merged configuration of all traced languages.
type Compound struct {
	Config
	// EnvironmentPath is the binary environment block beside the spec.
	EnvironmentPath string
	// CopyExecutables is set when some language asked for executable copying.
	CopyExecutables bool
}

// MergeEnv unions the environments of traced. A variable set to different
// values by two languages is a *ConflictError. CopyExecutablesKey is not
// merged; when any language sets it, it is set once to copyRoot.
func MergeEnv(traced []Traced, copyRoot string) (map[string]string, bool, error) {
	merged := make(map[string]string)
	copyExecutables := false

	for _, entry := range traced {
		for _, key := range sortedKeys(entry.Config.Env) {
			value := entry.Config.Env[key]

			if key == CopyExecutablesKey {
				copyExecutables = true

				continue
			}

			existing, ok := merged[key]
			if ok && existing != value {
				return nil, false, &ConflictError{Key: key, First: existing, Second: value}
			}

			merged[key] = value
		}
	}

	if copyExecutables {
		merged[CopyExecutablesKey] = copyRoot
	}

	return merged, copyExecutables, nil
}

// ConcatOrder returns traced in concatenation order: input order, except
// that the C/C++ tracer comes last because it must see the other blocks first.
func ConcatOrder(traced []Traced) []Traced {
	ordered := slices.Clone(traced)

	slices.SortStableFunc(ordered, func(a, b Traced) int {
		return cppRank(a.Language) - cppRank(b.Language)
	})

	return ordered
}

func cppRank(lang languages.Language) int {
	if lang == languages.CPP {
		return 1
	}

	return 0
}

// ConcatSpecs joins specs in the given order under a new log path.
func ConcatSpecs(specs []Spec, logPath string) Spec {
	compound := Spec{LogPath: logPath, Blocks: []string{}}

	for _, spec := range specs {
		compound.Count += spec.Count
		compound.Blocks = append(compound.Blocks, spec.Blocks...)
	}

	return compound
}

// Merger writes compound tracer configurations into TempDir.
type Merger struct {
	TempDir string
}

// Merge combines traced into one configuration and writes its spec file
// and environment block. Nothing is written when the environments conflict.
func (m *Merger) Merge(traced []Traced) (*Compound, error) {
	env, copyExecutables, err := MergeEnv(traced, filepath.Join(m.TempDir, CopyExecutablesDir))
	if err != nil {
		return nil, err
	}

	ordered := ConcatOrder(traced)
	specs := make([]Spec, 0, len(ordered))

	for _, entry := range ordered {
		spec, readErr := ReadSpec(entry.Config.Spec)
		if readErr != nil {
			return nil, fmt.Errorf("%s: %w", entry.Language, readErr)
		}

		specs = append(specs, spec)
	}

	specPath := filepath.Join(m.TempDir, SpecFileName)
	compound := ConcatSpecs(specs, filepath.Join(m.TempDir, LogFileName))

	err = os.WriteFile(specPath, compound.Bytes(), specFileMode)
	if err != nil {
		return nil, fmt.Errorf("write compound spec: %w", err)
	}

	envPath := specPath + EnvironmentSuffix

	err = os.WriteFile(envPath, EncodeEnvironment(env), specFileMode)
	if err != nil {
		return nil, fmt.Errorf("write compound environment: %w", err)
	}

	if copyExecutables {
		err = os.MkdirAll(env[CopyExecutablesKey], compoundTempDirMode)
		if err != nil {
			return nil, fmt.Errorf("create copy root: %w", err)
		}
	}

	return &Compound{
		Config:          Config{Spec: specPath, Env: env},
		EnvironmentPath: envPath,
		CopyExecutables: copyExecutables,
	}, nil
}
