package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the classes of failure the Core distinguishes. Stages
// wrap these with fmt.Errorf("%w: ...") so callers can errors.Is against the
// class while still getting a specific message.
var (
	// ErrAmbiguousEntryPoint is returned by the Classifier when an AST has
	// more than one top-level fn main and the multimain flag is not set.
	ErrAmbiguousEntryPoint = errors.New("ambiguous entry point: multiple fn main found")

	// ErrSnippetNotExpression is returned when a snippet/loop-body source
	// doesn't parse as a single value-producing expression and can't be
	// wrapped into one.
	ErrSnippetNotExpression = errors.New("source is not a value-producing expression")

	// ErrManifestParse is returned when an embedded manifest fragment
	// (a /* [toml] ... */ block comment) fails to parse as TOML.
	ErrManifestParse = errors.New("embedded manifest fragment is malformed")

	// ErrFeatureNotPublished is recorded as a warning, not surfaced as a
	// hard failure: the registry doesn't publish a feature the inferrer
	// or the user asked for.
	ErrFeatureNotPublished = errors.New("feature not published by crate")

	// ErrBuildFailed wraps BuildFailedError; see errors.As for the exit code.
	ErrBuildFailed = errors.New("cargo build failed")

	// ErrExecutableNotProduced fires when a build reports success but the
	// expected executable isn't at the path cargo should have placed it.
	ErrExecutableNotProduced = errors.New("build did not produce an executable")

	// ErrCacheCopyFailed fires when the built executable can't be copied
	// into the shared bin cache.
	ErrCacheCopyFailed = errors.New("failed to copy executable into cache")

	// ErrTempDirUnavailable fires when the process temp directory can't be
	// created or isn't writable.
	ErrTempDirUnavailable = errors.New("temp directory unavailable")
)

// BuildFailedError carries the cargo exit code alongside ErrBuildFailed so
// callers can report it without string-parsing stderr.
type BuildFailedError struct {
	ExitCode int
	Stage    string // "build", "run", or a passthrough subcommand name
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("cargo %s failed with exit code %d", e.Stage, e.ExitCode)
}

func (e *BuildFailedError) Unwrap() error {
	return ErrBuildFailed
}

// ParseDiagnostic records a non-fatal parse-stage observation: a partial
// parse that the Inferrer can still work with, or a hard failure that
// triggers the source-text fallback path.
type ParseDiagnostic struct {
	Fatal   bool
	Message string
	Line    int
}
