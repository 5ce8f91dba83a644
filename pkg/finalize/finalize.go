// Package finalize completes the databases created by setup and runs the
// configured queries against them.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/swissknife/pkg/codeql"
	"github.com/Sumatoshi-tech/swissknife/pkg/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
	"github.com/Sumatoshi-tech/swissknife/pkg/setup"
	"github.com/Sumatoshi-tech/swissknife/pkg/tracer"
)

// ExternalQueriesDir holds external query packs under the state directory.
const ExternalQueriesDir = "external-queries"

// SARIFExtension is appended to each language's results file.
const SARIFExtension = ".sarif"

const dirMode = 0o755

// ErrNotInitialized is returned when setup has not completed in this job.
var ErrNotInitialized = errors.New("setup has not completed in this job")

// Fetcher checks out ref of the repository at url into dir.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir, ref string) (string, error)
}

// Output is the results file of one language.
type Output struct {
	Language languages.Language
	Database string
	SARIF    string
	Queries  []string
}

// Driver runs the finalize step.
type Driver struct {
	Env       envstore.Store
	Runner    codeql.Runner
	Fetcher   Fetcher
	StateDir  string
	Workspace string
	OutputDir string
	GOOS      string
	// GitHubURL is the web root external query repositories are cloned from.
	GitHubURL string
	Logger    *slog.Logger
}

// Run finalizes and analyzes every language prepared by setup. Languages
// that need no build are extracted first.
func (d *Driver) Run(ctx context.Context) ([]Output, error) {
	logger := d.logger()

	if d.Env.Get(setup.EnvInitCompleted) != "true" {
		return nil, ErrNotInitialized
	}

	cmd, err := envstore.Required(d.Env, setup.EnvCmd)
	if err != nil {
		return nil, err
	}

	databaseDir, err := envstore.Required(d.Env, setup.EnvDatabaseDir)
	if err != nil {
		return nil, err
	}

	store := &config.Store{StateDir: d.StateDir, Workspace: d.Workspace, Logger: logger}

	cfg, err := store.LoadPersisted()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	external, err := d.fetchExternal(ctx, cfg)
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(d.OutputDir, dirMode)
	if err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	cli := &codeql.CLI{Path: cmd, Runner: d.Runner, Env: UntracedEnviron(d.Env.Environ())}

	scanned := languages.NewOrderedSet()
	for _, lang := range languages.ParseOverride(d.Env.Get(setup.EnvScannedLanguages)) {
		scanned.Add(lang)
	}

	langs := d.languages()
	outputs := make([]Output, 0, len(langs))

	for _, lang := range langs {
		out := Output{
			Language: lang,
			Database: filepath.Join(databaseDir, string(lang)),
			SARIF:    filepath.Join(d.OutputDir, string(lang)+SARIFExtension),
			Queries:  Queries(cfg, lang, external),
		}

		if scanned.Contains(lang) {
			err = d.extract(ctx, cli, lang, out.Database)
			if err != nil {
				return nil, err
			}
		}

		logger.InfoContext(ctx, "finalizing database", "language", lang, "database", out.Database)

		err = cli.DatabaseFinalize(ctx, out.Database)
		if err != nil {
			return nil, fmt.Errorf("finalize %s database: %w", lang, err)
		}

		logger.InfoContext(ctx, "analyzing database", "language", lang, "queries", len(out.Queries))

		err = cli.DatabaseAnalyze(ctx, out.Database, out.SARIF, out.Queries)
		if err != nil {
			return nil, fmt.Errorf("analyze %s database: %w", lang, err)
		}

		outputs = append(outputs, out)
	}

	return outputs, nil
}

// Queries lists the query suites and directories to run for lang. external
// holds the checked-out location of each external query pack.
func Queries(cfg *config.Config, lang languages.Language, external []string) []string {
	var queries []string

	if !cfg.DisableDefaultQueries {
		queries = append(queries, string(lang)+"-code-scanning.qls")
	}

	for _, suite := range cfg.AdditionalSuites {
		queries = append(queries, string(lang)+"-"+string(suite)+".qls")
	}

	queries = append(queries, cfg.AdditionalQueries...)

	return append(queries, external...)
}

// UntracedEnviron drops the tracer interception variables from environ so
// the tool itself does not run under the tracer.
func UntracedEnviron(environ []string) []string {
	out := make([]string, 0, len(environ))

	for _, entry := range environ {
		key, _, _ := strings.Cut(entry, "=")

		switch {
		case key == tracer.SpecKey, key == tracer.EnvLDPreload, key == tracer.EnvDyldInsert:
			continue
		case strings.HasPrefix(key, "SEMMLE_"):
			continue
		}

		out = append(out, entry)
	}

	return out
}

// ExtractorScript is the build script of the extractor installed at root.
func ExtractorScript(root, goos string) string {
	name := "autobuild.sh"
	if goos == "windows" {
		name = "autobuild.cmd"
	}

	return filepath.Join(root, "tools", name)
}

// extract populates the database of a language that needs no build. The
// extractor reads the path filters exported by setup from the environment.
func (d *Driver) extract(ctx context.Context, cli *codeql.CLI, lang languages.Language, db string) error {
	root, err := cli.ResolveExtractor(ctx, string(lang))
	if err != nil {
		return fmt.Errorf("resolve %s extractor: %w", lang, err)
	}

	script := ExtractorScript(root, d.GOOS)

	d.logger().InfoContext(ctx, "extracting", "language", lang, "script", script)

	err = cli.TraceScript(ctx, db, script)
	if err != nil {
		return fmt.Errorf("extract %s: %w", lang, err)
	}

	return nil
}

// ExternalDir is where query pack q is checked out.
func ExternalDir(stateDir string, q config.ExternalQuery) string {
	return filepath.Join(stateDir, ExternalQueriesDir, filepath.FromSlash(q.Repository),
		strings.ReplaceAll(q.Ref, "/", "_"))
}

func (d *Driver) fetchExternal(ctx context.Context, cfg *config.Config) ([]string, error) {
	paths := make([]string, 0, len(cfg.ExternalQueries))

	for _, query := range cfg.ExternalQueries {
		dir := ExternalDir(d.StateDir, query)
		url := strings.TrimSuffix(d.GitHubURL, "/") + "/" + query.Repository

		sha, err := d.Fetcher.Fetch(ctx, url, dir, query.Ref)
		if err != nil {
			return nil, fmt.Errorf("check out %s@%s: %w", query.Repository, query.Ref, err)
		}

		d.logger().InfoContext(ctx, "checked out external queries",
			"repository", query.Repository, "ref", query.Ref, "commit", sha)

		paths = append(paths, filepath.Join(dir, filepath.FromSlash(query.Path)))
	}

	return paths, nil
}

func (d *Driver) languages() []languages.Language {
	set := languages.NewOrderedSet()

	for _, key := range []string{setup.EnvScannedLanguages, setup.EnvTracedLanguages} {
		for _, lang := range languages.ParseOverride(d.Env.Get(key)) {
			set.Add(lang)
		}
	}

	return set.Values()
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.New(slog.DiscardHandler)
}
