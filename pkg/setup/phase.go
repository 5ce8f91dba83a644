package setup

// Phase is a step of the setup state machine.
type Phase string

// Setup phases, in order. Failed is reachable from any of them.
const (
	PhaseNotStarted       Phase = "not-started"
	PhasePerLanguageInit  Phase = "per-language-init"
	PhasePerLanguageTrace Phase = "per-language-trace"
	PhaseMerge            Phase = "merge"
	PhaseInject           Phase = "inject"
	PhaseDone             Phase = "done"
	PhaseFailed           Phase = "failed"
)
