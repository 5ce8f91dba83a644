package commands

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/swissknife/pkg/autobuild"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
)

func newBuildCommand(bootstrap Bootstrap) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the dominant compiled language automatically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return step(cmd.Context(), bootstrap, "build", runBuild)
		},
	}
}

func runBuild(ctx context.Context, app *App) error {
	driver := &autobuild.Driver{Env: app.Env, Runner: app.Runner, GOOS: app.GOOS, Logger: app.logger()}

	result, err := driver.Run(ctx)
	if err != nil {
		if errors.Is(err, autobuild.ErrAutobuild) {
			color.New(color.FgRed).Fprintln(app.stderr(),
				"We were unable to automatically build your code. "+
					"Please replace the build step with your custom build steps.")
		}

		return err
	}

	if len(result.Skipped) > 0 {
		color.New(color.FgYellow).Fprintf(app.stderr(),
			"Warning: only %s is built automatically. To build %s, use the custom language option in the swissknife orb.\n",
			result.Language, languages.Join(result.Skipped))
	}

	return nil
}
