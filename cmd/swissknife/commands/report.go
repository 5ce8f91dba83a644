package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/swissknife/internal/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/gitlib"
	"github.com/Sumatoshi-tech/swissknife/pkg/report"
)

func newReportCommand(bootstrap Bootstrap) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Rewrite result locations into permalinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return step(cmd.Context(), bootstrap, "report", runReport)
		},
	}
}

func runReport(ctx context.Context, app *App) error {
	settings := app.Settings

	err := settings.Require(config.KeyOutputDir)
	if err != nil {
		return err
	}

	if !settings.ReportEnabled() {
		app.logger().InfoContext(ctx, "nothing to do, not reporting to swissknife")

		return nil
	}

	err = settings.Require(config.KeyOwner, config.KeyRepo)
	if err != nil {
		return err
	}

	commit, err := reportCommit(settings)
	if err != nil {
		return err
	}

	rewriter := &report.Rewriter{
		Dir: settings.OutputDir,
		Links: report.Permalinker{
			BaseURL: settings.GitHub.URL,
			Owner:   settings.Owner,
			Repo:    settings.Repo,
			Commit:  commit,
		},
		Logger: app.logger(),
	}

	summary, err := rewriter.Run(ctx)
	if err != nil {
		return err
	}

	for _, failed := range summary.Failed {
		color.New(color.FgYellow).Fprintf(app.stderr(), "Couldn't build swissknife report: %v\n", failed)
	}

	fmt.Fprintf(app.stdout(), "rewrote %d report(s)\n", len(summary.Written))

	return nil
}

// reportCommit is the CI commit, or the workspace HEAD outside CI.
func reportCommit(settings *config.Settings) (string, error) {
	if settings.Commit != "" {
		return settings.Commit, nil
	}

	err := settings.Require(config.KeyWorkspace)
	if err != nil {
		return "", fmt.Errorf("CIRCLE_SHA1 is unset: %w", err)
	}

	commit, err := gitlib.HeadCommit(settings.Workspace)
	if err != nil {
		return "", fmt.Errorf("resolve commit: %w", err)
	}

	return commit, nil
}
