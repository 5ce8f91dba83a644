package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/swissknife/internal/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/codeql"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/observability"
	"github.com/Sumatoshi-tech/swissknife/pkg/version"
)

// envJob names the CI job in logs and telemetry.
const envJob = "CIRCLE_JOB"

const shutdownTimeout = 5 * time.Second

// App carries what every subcommand needs.
type App struct {
	Settings *config.Settings
	Env      envstore.Store
	Runner   codeql.Runner
	GOOS     string

	// Helper is the command line that dumps the environment it runs in.
	Helper []string

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.StepMetrics

	Stdout io.Writer
	Stderr io.Writer

	Shutdown func(ctx context.Context) error
}

// Bootstrap builds the App for one invocation.
type Bootstrap func(ctx context.Context) (*App, error)

// NewApp is the production Bootstrap: it reads settings from the process
// environment, hydrated from the export file, and starts telemetry.
func NewApp(_ context.Context) (*App, error) {
	env, err := envstore.NewProcessStore(os.Getenv("BASH_ENV"))
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(env)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Job = env.Get(envJob)
	obsCfg.OTLPEndpoint = settings.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(env.Get("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.OTLPInsecure = env.Get("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.MetricsFile = settings.Telemetry.MetricsFile
	obsCfg.LogLevel = settings.LogLevel()
	obsCfg.LogJSON = settings.Log.JSON

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewStepMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("locate executable: %w", err), providers.Shutdown(context.Background()))
	}

	return &App{
		Settings: settings,
		Env:      env,
		Runner:   &codeql.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr},
		GOOS:     runtime.GOOS,
		Helper:   []string{exe, tracerEnvCommand},
		Logger:   providers.Logger,
		Tracer:   providers.Tracer,
		Metrics:  metrics,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Shutdown: providers.Shutdown,
	}, nil
}

// step runs fn as the named step: it bootstraps the App, opens a span,
// records step metrics and flushes telemetry afterwards.
func step(ctx context.Context, bootstrap Bootstrap, name string, fn func(ctx context.Context, app *App) error) error {
	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	defer app.shutdown()

	if app.Tracer != nil {
		var span trace.Span

		ctx, span = app.Tracer.Start(ctx, "swissknife."+name)
		defer span.End()

		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}()
	}

	if app.Metrics != nil {
		done := app.Metrics.Track(ctx, name)
		defer func() { done(err) }()
	}

	app.logger().InfoContext(ctx, "running step", "step", name, "version", version.String())

	err = fn(ctx, app)

	return err
}

func (a *App) shutdown() {
	if a.Shutdown == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.Shutdown(ctx)
	if err != nil {
		a.logger().Warn("observability shutdown failed", "error", err)
	}
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}

	return slog.New(slog.DiscardHandler)
}

func (a *App) stdout() io.Writer {
	if a.Stdout != nil {
		return a.Stdout
	}

	return io.Discard
}

func (a *App) stderr() io.Writer {
	if a.Stderr != nil {
		return a.Stderr
	}

	return io.Discard
}
