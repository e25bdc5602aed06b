package cmd

// Exit codes for the devprobe CLI
const (
	// ExitSuccess indicates every step completed ok
	ExitSuccess = 0

	// ExitStepFailure indicates one or more steps failed
	ExitStepFailure = 1

	// ExitPresetError indicates a preset could not be resolved
	ExitPresetError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitCancelled indicates the run was cancelled
	ExitCancelled = 130
)
