package finalize_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/swissknife/pkg/codeql"
	"github.com/Sumatoshi-tech/swissknife/pkg/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/finalize"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
	"github.com/Sumatoshi-tech/swissknife/pkg/setup"
)

type fetch struct {
	url, dir, ref string
}

type fakeFetcher struct {
	calls []fetch
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dir, ref string) (string, error) {
	f.calls = append(f.calls, fetch{url: url, dir: dir, ref: ref})

	return "0123abcd", f.err
}

func newDriver(t *testing.T, cfg *config.Config) (*finalize.Driver, *envstore.MapStore, *codeql.RecordingRunner, *fakeFetcher) {
	t.Helper()

	stateDir := t.TempDir()
	require.NoError(t, (&config.Store{StateDir: stateDir}).Save(cfg))

	env := envstore.NewMapStore(map[string]string{
		setup.EnvInitCompleted:       "true",
		setup.EnvCmd:                 "/opt/codeql/codeql",
		setup.EnvDatabaseDir:         filepath.Join(stateDir, setup.DatabaseDirName),
		setup.EnvScannedLanguages:    "python",
		setup.EnvTracedLanguages:     "java",
		"ODASA_TRACER_CONFIGURATION": "/tmp/compound-spec",
		"LD_PRELOAD":                 "/opt/libtrace.so",
		"SEMMLE_RUNNER":              "/opt/runner",
		"LGTM_INDEX_INCLUDE":         "src",
		"PATH":                       "/usr/bin",
	})
	runner := &codeql.RecordingRunner{Handler: resolveExtractor}
	fetcher := &fakeFetcher{}

	driver := &finalize.Driver{
		Env:       env,
		Runner:    runner,
		Fetcher:   fetcher,
		StateDir:  stateDir,
		Workspace: t.TempDir(),
		OutputDir: filepath.Join(t.TempDir(), "results"),
		GOOS:      "linux",
		GitHubURL: "https://github.example.com/",
	}

	return driver, env, runner, fetcher
}

// resolveExtractor answers extractor lookups with /opt/codeql/<lang>.
func resolveExtractor(cmd codeql.Command) error {
	if cmd.Args[0] != "resolve" {
		return nil
	}

	lang := strings.TrimPrefix(cmd.Args[len(cmd.Args)-1], "--language=")
	_, err := fmt.Fprintf(cmd.Stdout, "%q\n", "/opt/codeql/"+lang)

	return err
}

func TestRun_FinalizesAndAnalyzesEachLanguage(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.AdditionalSuites = []config.Suite{config.SuiteSecurityExtended}
	cfg.AdditionalQueries = []string{"/ws/queries"}
	cfg.ExternalQueries = []config.ExternalQuery{{Repository: "octo/packs", Ref: "v1", Path: "java"}}

	driver, _, runner, fetcher := newDriver(t, cfg)

	outputs, err := driver.Run(context.Background())
	require.NoError(t, err)

	externalDir := filepath.Join(driver.StateDir, finalize.ExternalQueriesDir, "octo", "packs", "v1")

	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, fetch{url: "https://github.example.com/octo/packs", dir: externalDir, ref: "v1"}, fetcher.calls[0])

	require.Len(t, outputs, 2)
	assert.Equal(t, languages.Python, outputs[0].Language)
	assert.Equal(t, languages.Java, outputs[1].Language)
	assert.Equal(t, filepath.Join(driver.OutputDir, "java.sarif"), outputs[1].SARIF)
	assert.DirExists(t, driver.OutputDir)

	require.Len(t, runner.Calls, 6)
	assert.Equal(t, []string{"resolve", "extractor", "--format=json", "--language=python"}, runner.Calls[0].Args)
	assert.Equal(t, []string{
		"database", "trace-command", outputs[0].Database, "--", "/opt/codeql/python/tools/autobuild.sh",
	}, runner.Calls[1].Args)
	assert.Equal(t, []string{"database", "finalize", outputs[0].Database}, runner.Calls[2].Args)
	assert.Equal(t, []string{"database", "finalize", outputs[1].Database}, runner.Calls[4].Args)

	assert.Equal(t, []string{
		"database", "analyze", outputs[1].Database,
		"java-code-scanning.qls",
		"java-security-extended.qls",
		"/ws/queries",
		filepath.Join(externalDir, "java"),
		"--format=sarif-latest",
		"--output=" + outputs[1].SARIF,
	}, runner.Calls[5].Args)

	for _, call := range runner.Calls {
		assert.Equal(t, []string{"LGTM_INDEX_INCLUDE=src", "PATH=/usr/bin"}, filterTool(call.Env))
	}
}

// filterTool drops the facts exported by setup.
func filterTool(environ []string) []string {
	var out []string

	for _, entry := range environ {
		if strings.HasPrefix(entry, "CODEQL_") {
			continue
		}

		out = append(out, entry)
	}

	return out
}

func TestRun_NotInitialized(t *testing.T) {
	t.Parallel()

	driver, env, runner, _ := newDriver(t, config.New())
	require.NoError(t, env.Unset(setup.EnvInitCompleted))

	_, err := driver.Run(context.Background())
	require.ErrorIs(t, err, finalize.ErrNotInitialized)
	assert.Empty(t, runner.Calls)
}

func TestRun_MissingPersistedConfig(t *testing.T) {
	t.Parallel()

	driver, _, _, _ := newDriver(t, config.New())
	require.NoError(t, os.Remove(filepath.Join(driver.StateDir, config.StateFileName)))

	_, err := driver.Run(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_FetchFailure(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.ExternalQueries = []config.ExternalQuery{{Repository: "octo/packs", Ref: "main"}}

	driver, _, runner, fetcher := newDriver(t, cfg)
	fetcher.err = errors.New("network down")

	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "octo/packs@main")
	assert.Empty(t, runner.Calls)
}

func TestRun_ToolFailure(t *testing.T) {
	t.Parallel()

	driver, _, runner, _ := newDriver(t, config.New())
	runner.Handler = func(cmd codeql.Command) error {
		return &codeql.ToolError{Command: cmd.String(), ExitCode: 2, Err: errors.New("exit status 2")}
	}

	_, err := driver.Run(context.Background())
	require.ErrorIs(t, err, codeql.ErrExternalTool)
	assert.Contains(t, err.Error(), "resolve python extractor")
}

func TestRun_ExtractionFailureStopsFinalize(t *testing.T) {
	t.Parallel()

	driver, _, runner, _ := newDriver(t, config.New())
	runner.Handler = func(cmd codeql.Command) error {
		if cmd.Args[0] == "database" && cmd.Args[1] == "trace-command" {
			return &codeql.ToolError{Command: cmd.String(), ExitCode: 1, Err: errors.New("exit status 1")}
		}

		return resolveExtractor(cmd)
	}

	_, err := driver.Run(context.Background())
	require.ErrorIs(t, err, codeql.ErrExternalTool)
	assert.Contains(t, err.Error(), "extract python")
	assert.Len(t, runner.Calls, 2)
}

func TestExtractorScript(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("/x", "tools", "autobuild.sh"), finalize.ExtractorScript("/x", "darwin"))
	assert.Equal(t, filepath.Join("/x", "tools", "autobuild.cmd"), finalize.ExtractorScript("/x", "windows"))
}

func TestQueries(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.DisableDefaultQueries = true
	cfg.AdditionalSuites = []config.Suite{config.SuiteSecurityAndQuality}

	assert.Equal(t, []string{"go-security-and-quality.qls", "/x"},
		finalize.Queries(cfg, languages.Go, []string{"/x"}))
	assert.Equal(t, []string{"cpp-code-scanning.qls"}, finalize.Queries(config.New(), languages.CPP, nil))
}

func TestUntracedEnviron(t *testing.T) {
	t.Parallel()

	got := finalize.UntracedEnviron([]string{
		"PATH=/usr/bin",
		"ODASA_TRACER_CONFIGURATION=/spec",
		"DYLD_INSERT_LIBRARIES=/lib.dylib",
		"SEMMLE_COPY_EXECUTABLES_ROOT=/tmp",
		"CODEQL_RAM=6500",
	})

	assert.Equal(t, []string{"PATH=/usr/bin", "CODEQL_RAM=6500"}, got)
}
