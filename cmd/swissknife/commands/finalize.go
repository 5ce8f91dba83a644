package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/swissknife/internal/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/finalize"
)

func newFinalizeCommand(bootstrap Bootstrap) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Finalize databases and run queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return step(cmd.Context(), bootstrap, "finalize", runFinalize)
		},
	}
}

func runFinalize(ctx context.Context, app *App) error {
	settings := app.Settings

	err := settings.Require(config.KeyOutputDir)
	if err != nil {
		return err
	}

	driver := &finalize.Driver{
		Env:       app.Env,
		Runner:    app.Runner,
		Fetcher:   finalize.GitFetcher{},
		StateDir:  settings.StateDir,
		Workspace: settings.Workspace,
		OutputDir: settings.OutputDir,
		GOOS:      app.GOOS,
		GitHubURL: settings.GitHub.URL,
		Logger:    app.logger(),
	}

	outputs, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	for _, out := range outputs {
		fmt.Fprintf(app.stdout(), "%s: %s\n", out.Language, out.SARIF)
	}

	return nil
}
