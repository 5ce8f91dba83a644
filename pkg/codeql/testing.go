package codeql

import "context"

// RecordingRunner is a Runner for tests. It records every command and
// delegates to Handler when set.
type RecordingRunner struct {
	Calls   []Command
	Handler func(cmd Command) error
}

// Run records cmd.
func (r *RecordingRunner) Run(_ context.Context, cmd Command) error {
	r.Calls = append(r.Calls, cmd)

	if r.Handler == nil {
		return nil
	}

	return r.Handler(cmd)
}

// Args returns the arguments of every recorded call.
func (r *RecordingRunner) Args() [][]string {
	args := make([][]string, len(r.Calls))
	for i, call := range r.Calls {
		args[i] = call.Args
	}

	return args
}

var _ Runner = (*RecordingRunner)(nil)
