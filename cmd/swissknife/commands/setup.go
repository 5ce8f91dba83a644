package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/swissknife/internal/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/analysispaths"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
	"github.com/Sumatoshi-tech/swissknife/pkg/setup"
)

func newSetupCommand(bootstrap Bootstrap) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Initialize databases and start the build tracer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return step(cmd.Context(), bootstrap, "setup", runSetup)
		},
	}
}

func runSetup(ctx context.Context, app *App) error {
	settings := app.Settings

	err := settings.Require(config.KeyWorkspace, config.KeyEnvFile)
	if err != nil {
		return err
	}

	orch := &setup.Orchestrator{
		Env:        app.Env,
		Resolver:   &languages.Resolver{Env: app.Env, Source: &lazySource{app: app}, Logger: app.logger()},
		Runner:     app.Runner,
		StateDir:   settings.StateDir,
		Workspace:  settings.Workspace,
		ConfigFile: settings.ConfigFile,
		ToolRoot:   settings.ToolRoot,
		GOOS:       app.GOOS,
		RAM:        settings.RAM,
		Helper:     app.Helper,
		Logger:     app.logger(),
		Tracer:     app.Tracer,
		Metrics:    app.Metrics,
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if result.PathFilterWarning {
		color.New(color.FgYellow).Fprintf(app.stderr(), "Warning: %s\n", analysispaths.Warning)
	}

	writeSetupSummary(app.stdout(), result)

	return nil
}

// lazySource picks the language source on first use, so an explicit
// language list needs no hosting platform access.
type lazySource struct {
	app *App
}

func (ls *lazySource) Stats(ctx context.Context) ([]languages.Stat, error) {
	settings := ls.app.Settings

	if settings.LanguageSource == "local" {
		return (&languages.LocalSource{Root: settings.Workspace}).Stats(ctx)
	}

	err := settings.Require(config.KeyOwner, config.KeyRepo)
	if err != nil {
		return nil, err
	}

	source, err := languages.NewGitHubSource(ctx, settings.Owner, settings.Repo, settings.GitHub.Token, settings.GitHub.APIURL)
	if err != nil {
		return nil, err
	}

	return source.Stats(ctx)
}

func writeSetupSummary(out io.Writer, result *setup.Result) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("swissknife setup")

	tbl.AppendRows([]table.Row{
		{"Tool", fmt.Sprintf("%s %s", result.Version.ProductName, result.Version.Version)},
		{"Languages", languages.Join(result.Languages)},
		{"Scanned", languages.Join(result.Scanned)},
		{"Traced", languages.Join(result.Traced)},
		{"Databases", result.DatabaseDir},
	})

	if result.Compound != nil {
		tbl.AppendRow(table.Row{"Tracer spec", result.Compound.Spec})
	}

	tbl.Render()
}
