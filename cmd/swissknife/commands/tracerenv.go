package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/swissknife/pkg/tracer"
)

// tracerEnvCommand is run by the analysis tool under each language's tracer.
const tracerEnvCommand = "tracer-env"

func newTracerEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:    tracerEnvCommand + " <file>",
		Short:  "Write the current environment to file",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return tracer.WriteSnapshot(args[0], os.Environ())
		},
	}
}
