package procexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"thag/internal/logging"
)

// DirectExecutor runs commands directly on the host via os/exec. It is the
// only Executor the Core needs: the build tool is invoked as a plain child
// process, never inside a container or namespace.
type DirectExecutor struct {
	mu     sync.RWMutex
	config ExecutorConfig
}

// NewDirectExecutor creates a DirectExecutor with default config.
func NewDirectExecutor() *DirectExecutor {
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig creates a DirectExecutor with a custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	return &DirectExecutor{config: config}
}

// Capabilities returns what this executor supports.
func (e *DirectExecutor) Capabilities() ExecutorCapabilities {
	return ExecutorCapabilities{
		Name:           "direct",
		Platform:       runtime.GOOS,
		SupportsStdin:  true,
		MaxTimeout:     e.config.MaxTimeout,
		DefaultTimeout: e.config.DefaultTimeout,
	}
}

// Validate checks if a command can be executed.
func (e *DirectExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Execute runs cmd to completion. When cmd.Inherit is set, stdout/stderr
// are connected directly to this process's own streams for real-time
// feedback (the mode the Build Orchestrator uses for build/run); otherwise
// output is captured into the result.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	timer := logging.StartTimer(logging.CategoryExec, cmd.CommandString())
	defer timer.Stop()

	if err := e.Validate(cmd); err != nil {
		logging.ExecWarn("command validation failed: %s %v - %v", cmd.Binary, cmd.Arguments, err)
		return nil, err
	}
	cmd = e.config.Merge(cmd)

	logging.ExecDebug("executing: %s (dir=%s, timeout=%dms, inherit=%v)",
		cmd.CommandString(), cmd.WorkingDirectory, cmd.TimeoutMs, cmd.Inherit)

	execCtx := ctx
	cancel := func() {}
	if cmd.TimeoutMs > 0 {
		execCtx, cancel = context.WithTimeout(ctx, time.Duration(cmd.TimeoutMs)*time.Millisecond)
	}
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = e.buildEnvironment(cmd.Environment)

	result := &ExecutionResult{ExitCode: -1}

	var stdoutBuf, stderrBuf bytes.Buffer
	if cmd.Inherit {
		execCmd.Stdout = os.Stdout
		execCmd.Stderr = os.Stderr
	} else {
		if cmd.Stdin != "" {
			execCmd.Stdin = strings.NewReader(cmd.Stdin)
		}
		maxOutput := e.config.MaxOutputBytes
		execCmd.Stdout = &limitedWriter{w: &stdoutBuf, max: maxOutput}
		execCmd.Stderr = &limitedWriter{w: &stderrBuf, max: maxOutput}
	}

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	if !cmd.Inherit {
		result.Stdout = stdoutBuf.String()
		result.Stderr = stderrBuf.String()
		result.Combined = joinNonEmpty(result.Stdout, result.Stderr)
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %dms", cmd.TimeoutMs)
		result.Success = true
		logging.ExecWarn("command killed (timeout): %s", cmd.CommandString())
	case execCtx.Err() == context.Canceled:
		result.Killed = true
		result.KillReason = "context canceled"
		result.Success = true
	default:
		if exitErr, ok := asExitError(err); ok {
			result.Success = true
			result.ExitCode = exitErr
		} else if err != nil {
			result.Success = false
			result.Error = err.Error()
			logging.ExecError("command failed to start: %s - %v", cmd.CommandString(), err)
			return result, nil
		} else {
			result.Success = true
			result.ExitCode = 0
		}
	}

	logging.Exec("command completed: %s -> exit=%d, duration=%s", cmd.CommandString(), result.ExitCode, result.Duration)
	return result, nil
}

func asExitError(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n" + b
}

func (e *DirectExecutor) buildEnvironment(cmdEnv []string) []string {
	env := make([]string, 0, len(e.config.AllowedEnvironment)+len(cmdEnv))
	for _, key := range e.config.AllowedEnvironment {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	env = append(env, cmdEnv...)
	return env
}

// limitedWriter is an io.Writer that stops growing a buffer past max bytes
// without erroring the underlying command, used only in captured mode.
type limitedWriter struct {
	w       io.Writer
	max     int64
	written int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.max <= 0 || lw.written >= lw.max {
		return len(p), nil
	}
	remaining := lw.max - lw.written
	toWrite := p
	if int64(len(p)) > remaining {
		toWrite = p[:remaining]
	}
	n, err := lw.w.Write(toWrite)
	lw.written += int64(n)
	return len(p), err
}
