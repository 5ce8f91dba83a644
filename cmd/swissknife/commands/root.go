// Package commands implements the swissknife subcommands.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// ErrUnknownCommand is returned for a subcommand outside the known set.
	ErrUnknownCommand = errors.New("invalid command, use one of setup, build, finalize or report")
	// ErrMissingCommand is returned when no subcommand is given.
	ErrMissingCommand = errors.New("missing command, use one of setup, build, finalize or report")
)

// NewRootCommand creates the swissknife root command. bootstrap is called
// once by each step subcommand.
func NewRootCommand(bootstrap Bootstrap) *cobra.Command {
	root := &cobra.Command{
		Use:   "swissknife <command>",
		Short: "Run code scanning inside a CI job",
		Long: `swissknife drives the analysis tool through the steps of a CI job.

Commands:
  setup     Initialize databases and start the build tracer
  build     Build the dominant compiled language automatically
  finalize  Finalize databases and run queries
  report    Rewrite result locations into permalinks`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return nil
			}

			printUsage(cmd)

			return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			printUsage(cmd)

			return ErrMissingCommand
		},
	}

	root.AddCommand(
		newSetupCommand(bootstrap),
		newBuildCommand(bootstrap),
		newFinalizeCommand(bootstrap),
		newReportCommand(bootstrap),
		newVersionCommand(),
		newTracerEnvCommand(),
	)

	return root
}

func printUsage(cmd *cobra.Command) {
	fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
}
