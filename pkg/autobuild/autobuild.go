// Package autobuild builds the dominant traced language with the analysis
// tool's bundled build script.
package autobuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/swissknife/pkg/codeql"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
	"github.com/Sumatoshi-tech/swissknife/pkg/setup"
)

// EnvJavaToolOptions is read by every JVM the build starts.
const EnvJavaToolOptions = "JAVA_TOOL_OPTIONS"

// javaKeepAliveWorkaround stops Maven from reusing connections that CI
// networks close after a few idle minutes.
var javaKeepAliveWorkaround = []string{"-Dhttp.keepAlive=false", "-Dmaven.wagon.http.pool=false"}

// ErrAutobuild wraps every build failure.
var ErrAutobuild = errors.New(
	"unable to automatically build your code; replace the build step with your custom build steps")

// Result describes what was built.
type Result struct {
	// Language is empty when no traced language needs a build.
	Language languages.Language
	// Skipped are the other traced languages, which are not built.
	Skipped []languages.Language
	Script  string
}

// Driver runs the build step.
type Driver struct {
	Env    envstore.Store
	Runner codeql.Runner
	GOOS   string
	Logger *slog.Logger
}

// Run builds the first traced language recorded by setup.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	logger := d.logger()

	traced := languages.ParseOverride(d.Env.Get(setup.EnvTracedLanguages))
	if len(traced) == 0 {
		logger.InfoContext(ctx, "none of the languages in this project require extra build steps")

		return &Result{}, nil
	}

	result := &Result{Language: traced[0], Skipped: traced[1:]}

	logger.InfoContext(ctx, "detected dominant traced language", "language", result.Language)

	if len(result.Skipped) > 0 {
		logger.WarnContext(ctx, "only the dominant language is built automatically",
			"language", result.Language, "skipped", languages.Join(result.Skipped))
	}

	cmd, err := envstore.Required(d.Env, setup.EnvCmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAutobuild, err)
	}

	result.Script = ScriptPath(cmd, result.Language, d.GOOS)

	err = d.Env.Set(EnvJavaToolOptions, WithJavaWorkaround(d.Env.Get(EnvJavaToolOptions)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAutobuild, err)
	}

	logger.InfoContext(ctx, "attempting to automatically build", "language", result.Language, "script", result.Script)

	err = d.Runner.Run(ctx, codeql.Command{Path: result.Script, Env: d.Env.Environ()})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAutobuild, err)
	}

	logger.InfoContext(ctx, "autobuild finished successfully")

	return result, nil
}

// ScriptPath locates the build script of lang next to the tool binary cmd.
func ScriptPath(cmd string, lang languages.Language, goos string) string {
	name := "autobuild.sh"
	if goos == "windows" {
		name = "autobuild.cmd"
	}

	return filepath.Join(filepath.Dir(cmd), string(lang), "tools", name)
}

// WithJavaWorkaround appends the connection workaround flags to existing options.
func WithJavaWorkaround(options string) string {
	return strings.Join(append(strings.Fields(options), javaKeepAliveWorkaround...), " ")
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.New(slog.DiscardHandler)
}
