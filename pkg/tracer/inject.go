package tracer

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/swissknife/pkg/codeql"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
)

// Interception variables.
const (
	EnvDyldInsert = "DYLD_INSERT_LIBRARIES"
	EnvLDPreload  = "LD_PRELOAD"
)

//go:embed inject-tracer.ps1
var injectScript []byte

// Injector makes later processes of the job run under the tracer.
type Injector interface {
	Inject(ctx context.Context, env envstore.Store, spec string) error
}

// PreloadLibrary inserts the tracer library through the macOS dynamic loader.
type PreloadLibrary struct {
	Library string
}

// Inject exports DYLD_INSERT_LIBRARIES.
func (p *PreloadLibrary) Inject(_ context.Context, env envstore.Store, _ string) error {
	return export(env, EnvDyldInsert, p.Library)
}

// PreloadList adds the tracer shared object to the Linux preload list.
// The ${LIB} token is expanded by the loader.
type PreloadList struct {
	Library string
}

// Inject exports LD_PRELOAD.
func (p *PreloadList) Inject(_ context.Context, env envstore.Store, _ string) error {
	return export(env, EnvLDPreload, p.Library)
}

// HelperScriptInjection runs a PowerShell script that injects the tracer
// executable into the CI agent process on Windows.
type HelperScriptInjection struct {
	Runner  codeql.Runner
	Tracer  string
	WorkDir string
}

// Inject writes the helper script to WorkDir and runs it with SpecKey set.
func (h *HelperScriptInjection) Inject(ctx context.Context, env envstore.Store, spec string) error {
	script := filepath.Join(h.WorkDir, "inject-tracer.ps1")

	err := os.WriteFile(script, injectScript, 0o644)
	if err != nil {
		return fmt.Errorf("write injection script: %w", err)
	}

	cmd := codeql.Command{
		Path: "powershell",
		Args: []string{script, h.Tracer},
		Env:  append(env.Environ(), SpecKey+"="+spec),
	}

	err = h.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("inject tracer: %w", err)
	}

	return nil
}

// NewInjector picks the injection strategy for the platform of setup.
func NewInjector(setup *codeql.Setup, runner codeql.Runner, workDir string) (Injector, error) {
	switch setup.Platform {
	case codeql.OSX64:
		return &PreloadLibrary{Library: setup.ToolPath("libtrace.dylib")}, nil
	case codeql.Win64:
		return &HelperScriptInjection{Runner: runner, Tracer: setup.ToolPath("tracer.exe"), WorkDir: workDir}, nil
	case codeql.Linux64:
		return &PreloadList{Library: setup.ToolPath("${LIB}trace.so")}, nil
	default:
		return nil, fmt.Errorf("%w: %s", codeql.ErrUnsupportedPlatform, setup.Platform)
	}
}

// Activate exports the compound environment and spec path, then injects
// the tracer. Later steps of the job inherit all of it.
func Activate(ctx context.Context, env envstore.Store, compound *Compound, injector Injector) error {
	for _, key := range sortedKeys(compound.Env) {
		err := export(env, key, compound.Env[key])
		if err != nil {
			return err
		}
	}

	err := export(env, SpecKey, compound.Spec)
	if err != nil {
		return err
	}

	return injector.Inject(ctx, env, compound.Spec)
}

func export(env envstore.Store, key, value string) error {
	err := env.Export(key, value)
	if err != nil {
		return fmt.Errorf("export %s: %w", key, err)
	}

	return nil
}

var (
	_ Injector = (*PreloadLibrary)(nil)
	_ Injector = (*PreloadList)(nil)
	_ Injector = (*HelperScriptInjection)(nil)
)
