// Package procexec is the Core's one path for running a child process: the
// cargo invocations the Build Orchestrator issues and the passthrough
// sub-commands a user requests. There is no sandboxing here by design -
// thag drives the host toolchain, it does not try to contain it.
package procexec

import "time"

// Command is the input specification for Execute.
type Command struct {
	// Binary is the executable to run, e.g. "cargo".
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to set (KEY=VALUE), merged over the executor's
	// allowed environment.
	Environment []string `json:"environment,omitempty"`

	// Stdin, when non-empty, is piped to the command's standard input.
	// Ignored when Inherit is true.
	Stdin string `json:"stdin,omitempty"`

	// Inherit routes the child's stdout/stderr directly to this process's,
	// for real-time feedback during build and run. When false, output is
	// captured into the ExecutionResult instead.
	Inherit bool `json:"inherit"`

	// TimeoutMs caps execution time; zero means no deadline at all. The
	// Core never sets this for cargo invocations - the build tool may hang,
	// and that is the user's to interrupt, not ours to cap.
	TimeoutMs int64 `json:"timeout_ms,omitempty"`

	// SessionID/RequestID tag this execution for logging correlation.
	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// CommandString renders the command for display/logging.
func (c Command) CommandString() string {
	result := c.Binary
	for _, arg := range c.Arguments {
		result += " " + arg
	}
	return result
}

// ExecutionResult is the outcome of running a Command.
type ExecutionResult struct {
	// Success means the execution infrastructure worked; a command that
	// ran and returned a non-zero exit code still has Success=true.
	Success bool `json:"success"`

	// ExitCode is the command's exit code (-1 if never started).
	ExitCode int `json:"exit_code"`

	// Stdout/Stderr/Combined are only populated when Command.Inherit is
	// false; inherited runs leave these empty since the bytes went
	// straight to this process's own streams.
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Combined string `json:"combined"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Error carries an infrastructure-level failure (process never
	// started, context error, etc.); it is distinct from a non-zero exit.
	Error string `json:"error,omitempty"`
}

// IsError reports an infrastructure-level failure, as opposed to the
// child process simply exiting non-zero.
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// ExecutorCapabilities describes what an executor supports.
type ExecutorCapabilities struct {
	Name           string        `json:"name"`
	Platform       string        `json:"platform"`
	SupportsStdin  bool          `json:"supports_stdin"`
	MaxTimeout     time.Duration `json:"max_timeout"`
	DefaultTimeout time.Duration `json:"default_timeout"`
}

// ExecutorConfig configures a DirectExecutor.
type ExecutorConfig struct {
	DefaultWorkingDir  string
	DefaultTimeout     time.Duration
	MaxTimeout         time.Duration
	MaxOutputBytes     int64
	AllowedEnvironment []string
}

// DefaultExecutorConfig returns sensible defaults. DefaultTimeout is only
// reported through Capabilities; Merge never applies it, so a command
// without TimeoutMs runs with no deadline.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultWorkingDir:  ".",
		DefaultTimeout:     10 * time.Minute,
		MaxTimeout:         30 * time.Minute,
		MaxOutputBytes:     16 * 1024 * 1024,
		AllowedEnvironment: []string{"PATH", "HOME", "USERPROFILE", "CARGO_HOME", "RUSTUP_HOME", "LANG", "LC_ALL"},
	}
}

// Merge applies config defaults to a command that didn't specify them.
// TimeoutMs==0 is left alone: it means the caller wants no deadline, not
// "use the default one". Only an explicit, positive TimeoutMs gets capped
// to MaxTimeout.
func (c ExecutorConfig) Merge(cmd Command) Command {
	result := cmd
	if result.WorkingDirectory == "" {
		result.WorkingDirectory = c.DefaultWorkingDir
	}
	if maxMs := int64(c.MaxTimeout / time.Millisecond); maxMs > 0 && result.TimeoutMs > maxMs {
		result.TimeoutMs = maxMs
	}
	return result
}
