// Package setup prepares a CI job for analysis: it initializes one database
// per language and arranges for the build to run under a compound tracer.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/swissknife/pkg/analysispaths"
	"github.com/Sumatoshi-tech/swissknife/pkg/codeql"
	"github.com/Sumatoshi-tech/swissknife/pkg/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
	"github.com/Sumatoshi-tech/swissknife/pkg/observability"
	"github.com/Sumatoshi-tech/swissknife/pkg/tracer"
)

// Variables exported for later steps of the job.
const (
	EnvRunnerTemp       = "RUNNER_TEMP"
	EnvRAM              = "CODEQL_RAM"
	EnvScannedLanguages = "CODEQL_ACTION_SCANNED_LANGUAGES"
	EnvTracedLanguages  = "CODEQL_ACTION_TRACED_LANGUAGES"
	EnvDatabaseDir      = "CODEQL_ACTION_DATABASE_DIR"
	EnvCmd              = "CODEQL_ACTION_CMD"
	EnvInitCompleted    = "CODEQL_ACTION_INIT_COMPLETED"
)

// DatabaseDirName is the directory under the state directory holding one
// database per language.
const DatabaseDirName = "codeql_databases"

const dirMode = 0o755

// LanguageResolver yields the languages to analyze.
type LanguageResolver interface {
	Resolve(ctx context.Context) ([]languages.Language, error)
}

// Orchestrator runs the setup step.
type Orchestrator struct {
	Env       envstore.Store
	Resolver  LanguageResolver
	Runner    codeql.Runner
	StateDir  string
	Workspace string
	// ConfigFile is the analysis configuration, relative to Workspace; may be empty.
	ConfigFile string
	ToolRoot   string
	GOOS       string
	// RAM is the default tool memory budget in megabytes, used verbatim when the
	// environment does not set one.
	RAM string
	// Helper is the command line that dumps the traced environment.
	Helper []string

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.StepMetrics

	phase Phase
}

// Result summarizes a successful setup.
type Result struct {
	Version     codeql.VersionInfo
	Config      *config.Config
	Languages   []languages.Language
	Scanned     []languages.Language
	Traced      []languages.Language
	DatabaseDir string
	Cmd         string
	// Compound is nil when no language is traced.
	Compound *tracer.Compound
	// PathFilterWarning is set when some languages ignore the path filters.
	PathFilterWarning bool
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	if o.phase == "" {
		return PhaseNotStarted
	}

	return o.phase
}

// Run executes setup. Any error leaves the orchestrator in PhaseFailed; the
// tracer is only activated once every language has been captured and merged.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, span := o.otelTracer().Start(ctx, "setup.run")
	defer span.End()

	result, err := o.run(ctx)
	if err != nil {
		o.enter(ctx, PhaseFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	o.enter(ctx, PhaseDone)

	if o.Metrics != nil {
		o.Metrics.RecordLanguages(ctx, len(result.Scanned), len(result.Traced))
	}

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context) (*Result, error) {
	logger := o.logger()

	err := os.MkdirAll(o.StateDir, dirMode)
	if err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	err = o.Env.Export(EnvRunnerTemp, o.StateDir)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", EnvRunnerTemp, err)
	}

	store := &config.Store{StateDir: o.StateDir, Workspace: o.Workspace, Logger: logger}

	cfg, err := store.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}

	langs, err := o.Resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if len(langs) == 0 {
		return nil, languages.ErrNoLanguagesDetected
	}

	warn, err := analysispaths.Apply(o.Env, cfg, langs)
	if err != nil {
		return nil, err
	}

	tool, err := codeql.Locate(o.ToolRoot, o.GOOS)
	if err != nil {
		return nil, err
	}

	if _, ok := o.Env.Lookup(EnvRAM); !ok && o.RAM != "" {
		err = o.Env.Set(EnvRAM, o.RAM)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", EnvRAM, err)
		}
	}

	cli := &codeql.CLI{Path: tool.Cmd, Runner: o.Runner, Env: o.Env.Environ()}

	version, err := cli.Version(ctx)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "found analysis tool", "cmd", tool.Cmd, "version", version.Version)

	databaseDir := filepath.Join(o.StateDir, DatabaseDirName)

	err = os.MkdirAll(databaseDir, dirMode)
	if err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	result := &Result{
		Version:           version,
		Config:            cfg,
		Languages:         langs,
		Scanned:           []languages.Language{},
		Traced:            []languages.Language{},
		DatabaseDir:       databaseDir,
		Cmd:               tool.Cmd,
		PathFilterWarning: warn,
	}

	traced, err := o.initDatabases(ctx, cli, result)
	if err != nil {
		return nil, err
	}

	if len(traced) > 0 {
		result.Compound, err = o.mergeAndInject(ctx, tool, traced)
		if err != nil {
			return nil, err
		}
	}

	err = o.exportFacts(result)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "setup succeeded",
		"scanned", languages.Join(result.Scanned), "traced", languages.Join(result.Traced))

	return result, nil
}

func (o *Orchestrator) initDatabases(ctx context.Context, cli *codeql.CLI, result *Result) ([]tracer.Traced, error) {
	capturer := &tracer.Capturer{CLI: cli, Helper: o.Helper, Parent: o.Env}

	var traced []tracer.Traced

	for _, lang := range result.Languages {
		db := filepath.Join(result.DatabaseDir, string(lang))

		o.enter(ctx, PhasePerLanguageInit)

		err := cli.DatabaseInit(ctx, db, string(lang), o.Workspace)
		if err != nil {
			return nil, fmt.Errorf("initialize %s database: %w", lang, err)
		}

		if !languages.IsTraced(lang) {
			result.Scanned = append(result.Scanned, lang)

			continue
		}

		o.enter(ctx, PhasePerLanguageTrace)

		cfg, err := capturer.Capture(ctx, db, "")
		if err != nil {
			return nil, fmt.Errorf("capture %s tracer: %w", lang, err)
		}

		traced = append(traced, tracer.Traced{Language: lang, Config: cfg})
		result.Traced = append(result.Traced, lang)
	}

	return traced, nil
}

func (o *Orchestrator) mergeAndInject(ctx context.Context, tool *codeql.Setup, traced []tracer.Traced) (*tracer.Compound, error) {
	o.enter(ctx, PhaseMerge)

	compound, err := (&tracer.Merger{TempDir: o.StateDir}).Merge(traced)
	if err != nil {
		return nil, err
	}

	o.enter(ctx, PhaseInject)

	injector, err := tracer.NewInjector(tool, o.Runner, o.StateDir)
	if err != nil {
		return nil, err
	}

	err = tracer.Activate(ctx, o.Env, compound, injector)
	if err != nil {
		return nil, err
	}

	return compound, nil
}

func (o *Orchestrator) exportFacts(result *Result) error {
	facts := []struct{ key, value string }{
		{EnvScannedLanguages, languages.Join(result.Scanned)},
		{EnvTracedLanguages, languages.Join(result.Traced)},
		{EnvDatabaseDir, result.DatabaseDir},
		{EnvCmd, result.Cmd},
		{EnvInitCompleted, "true"},
	}

	for _, fact := range facts {
		err := o.Env.Export(fact.key, fact.value)
		if err != nil {
			return fmt.Errorf("export %s: %w", fact.key, err)
		}
	}

	return nil
}

func (o *Orchestrator) enter(ctx context.Context, phase Phase) {
	if o.phase == phase {
		return
	}

	o.phase = phase

	trace.SpanFromContext(ctx).AddEvent("phase", trace.WithAttributes(attribute.String("phase", string(phase))))
	o.logger().DebugContext(ctx, "setup phase", "phase", phase)
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.DiscardHandler)
}

func (o *Orchestrator) otelTracer() trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}

	return nooptrace.NewTracerProvider().Tracer("")
}
