package procexec

import "context"

// Executor runs a Command and reports the outcome. The Build Orchestrator
// depends only on this interface, not on DirectExecutor, so tests can
// substitute a fake.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
	Capabilities() ExecutorCapabilities
	Validate(cmd Command) error
}
