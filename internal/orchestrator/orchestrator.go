package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"thag/internal/build"
	"thag/internal/logging"
	"thag/internal/model"
	"thag/internal/procexec"
)

// Orchestrator drives cargo for one script's build/run lifecycle. It owns
// no state across invocations beyond what Paths already encodes; two
// Orchestrators for different stems never interfere with each other.
type Orchestrator struct {
	Paths    Paths
	Executor procexec.Executor
}

// New returns an Orchestrator for stem using executor to run cargo.
func New(stem string, executor procexec.Executor) *Orchestrator {
	return &Orchestrator{Paths: NewPaths(stem), Executor: executor}
}

// Build runs `cargo build` (or `cargo build --release` under the
// EXECUTABLE flag) with the shared target root wired in via
// CARGO_TARGET_DIR, inheriting stdout/stderr for real-time feedback.
func (o *Orchestrator) Build(ctx context.Context, release bool) error {
	args := []string{"build"}
	if release {
		args = append(args, "--release")
	}

	result, err := o.runCargo(ctx, args, true)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", model.ErrBuildFailed, result.Error)
	}
	if result.ExitCode != 0 {
		return &model.BuildFailedError{ExitCode: result.ExitCode, Stage: "build"}
	}
	return nil
}

// RunSubcommand hands control to an arbitrary cargo sub-command, used by
// the CARGO_SUBCOMMAND flag. The orchestrator neither caches nor runs the
// resulting binary in this mode.
func (o *Orchestrator) RunSubcommand(ctx context.Context, subcommand string, args []string) error {
	full := append([]string{subcommand}, args...)
	result, err := o.runCargo(ctx, full, true)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", model.ErrBuildFailed, result.Error)
	}
	if result.ExitCode != 0 {
		return &model.BuildFailedError{ExitCode: result.ExitCode, Stage: subcommand}
	}
	return nil
}

func (o *Orchestrator) runCargo(ctx context.Context, args []string, inherit bool) (*procexec.ExecutionResult, error) {
	env := build.CargoEnv(o.Paths.TargetRoot)
	cmd := procexec.Command{
		Binary:           "cargo",
		Arguments:        args,
		WorkingDirectory: o.Paths.ProjectRoot,
		Environment:      env,
		Inherit:          inherit,
	}
	logging.Build("running %s", cmd.CommandString())
	return o.Executor.Execute(ctx, cmd)
}

// CacheDebugBinary copies the freshly built debug binary from the shared
// target root into the flat executable cache, via tempfile-then-rename so
// a killed process never leaves a torn cache entry that a later run would
// mistake for fresh.
func (o *Orchestrator) CacheDebugBinary() error {
	src := o.Paths.DebugBinary()
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrExecutableNotProduced, err)
	}

	if err := os.MkdirAll(o.Paths.BinRoot, 0o755); err != nil {
		return fmt.Errorf("%w: %v", model.ErrCacheCopyFailed, err)
	}
	if err := atomicCopy(src, o.Paths.Executable, info.Mode()); err != nil {
		return fmt.Errorf("%w: %v", model.ErrCacheCopyFailed, err)
	}
	logging.BuildDebug("cached executable at %s", o.Paths.Executable)
	return nil
}

// CopyReleaseToUserBin copies a release build into the user's personal
// binary directory under the EXECUTABLE flag, instead of the executable
// cache.
func (o *Orchestrator) CopyReleaseToUserBin(destDir string) (string, error) {
	src := o.Paths.ReleaseBinary()
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrExecutableNotProduced, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCacheCopyFailed, err)
	}
	dest := filepath.Join(destDir, filepath.Base(src))
	if err := atomicCopy(src, dest, info.Mode()); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCacheCopyFailed, err)
	}
	return dest, nil
}

// Run executes the cached executable with the script's arguments, stdout
// and stderr inherited, and returns its exit code.
func (o *Orchestrator) Run(ctx context.Context, args []string) (int, error) {
	cmd := procexec.Command{
		Binary:    o.Paths.Executable,
		Arguments: args,
		Inherit:   true,
	}
	result, err := o.Executor.Execute(ctx, cmd)
	if err != nil {
		return -1, err
	}
	if result.IsError() {
		return -1, fmt.Errorf("%w: %s", model.ErrBuildFailed, result.Error)
	}
	return result.ExitCode, nil
}

// CleanTarget selects which cache roots Clean removes.
type CleanTarget int

const (
	CleanBins CleanTarget = iota
	CleanTargetDir
	CleanAll
)

// Clean removes the requested cache root(s). Per-script project
// directories under thag_rs/ are left alone; they're negligible and the
// OS reclaims the temp directory on its own schedule.
func Clean(target CleanTarget) error {
	stem := "" // roots below don't depend on stem
	paths := NewPaths(stem)

	switch target {
	case CleanBins:
		return os.RemoveAll(paths.BinRoot)
	case CleanTargetDir:
		return os.RemoveAll(paths.TargetRoot)
	case CleanAll:
		if err := os.RemoveAll(paths.BinRoot); err != nil {
			return err
		}
		return os.RemoveAll(paths.TargetRoot)
	default:
		return fmt.Errorf("unknown clean target %d", target)
	}
}

// atomicCopy copies src to dest via a tempfile in dest's directory followed
// by an atomic rename, so a crash mid-copy never leaves a truncated binary
// at dest.
func atomicCopy(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".thag-tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
