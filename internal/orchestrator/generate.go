package orchestrator

import (
	"fmt"
	"os"

	"thag/internal/build"
	"thag/internal/logging"
	"thag/internal/model"
)

// Generate writes the wrapped source and synthesised manifest to the
// per-script project directory. Per §4.6 this must be byte-idempotent:
// a file whose on-disk content already matches is left untouched so its
// mtime survives for the freshness check.
func Generate(paths Paths, source, manifestTOML string) (changed bool, err error) {
	if err := build.EnsureWritable(paths.ProjectRoot); err != nil {
		return false, fmt.Errorf("%w: %v", model.ErrTempDirUnavailable, err)
	}

	srcChanged, err := writeIfChanged(paths.SourcePath(), source)
	if err != nil {
		return false, err
	}
	manifestChanged, err := writeIfChanged(paths.ManifestPath(), manifestTOML)
	if err != nil {
		return false, err
	}

	if srcChanged || manifestChanged {
		logging.BuildDebug("generated project at %s (source changed=%v, manifest changed=%v)", paths.ProjectRoot, srcChanged, manifestChanged)
	} else {
		logging.BuildDebug("project at %s already up to date, skipped write", paths.ProjectRoot)
	}
	return srcChanged || manifestChanged, nil
}

// writeIfChanged compares content against what's on disk and only writes
// (via tempfile-then-rename) when it differs, preserving mtime otherwise.
func writeIfChanged(path, content string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		return false, nil
	}

	tmp := path + ".thag-tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return false, fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return true, nil
}
