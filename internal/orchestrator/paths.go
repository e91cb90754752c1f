// Package orchestrator implements the Build Orchestrator: path layout under
// the shared cache roots, freshness checking, the generate/build/cache/run
// steps, and the clean operation.
package orchestrator

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the three well-known cache roots from §3, all rooted under
// the OS temporary directory, plus the per-stem locations derived from
// them.
type Paths struct {
	ProjectRoot string // <tmp>/thag_rs/<stem>/
	TargetRoot  string // <tmp>/thag_rs_shared_target/
	BinRoot     string // <tmp>/thag_rs_bins/
	Executable  string // <tmp>/thag_rs_bins/<stem>[.exe]
	Stem        string
}

// NewPaths derives the cache layout for stem from the OS temp directory.
func NewPaths(stem string) Paths {
	base := os.TempDir()
	exeName := stem
	if runtime.GOOS == "windows" {
		exeName += ".exe"
	}
	binRoot := filepath.Join(base, "thag_rs_bins")
	return Paths{
		ProjectRoot: filepath.Join(base, "thag_rs", stem),
		TargetRoot:  filepath.Join(base, "thag_rs_shared_target"),
		BinRoot:     binRoot,
		Executable:  filepath.Join(binRoot, exeName),
		Stem:        stem,
	}
}

// ManifestPath is the generated Cargo.toml location.
func (p Paths) ManifestPath() string {
	return filepath.Join(p.ProjectRoot, "Cargo.toml")
}

// SourcePath is the generated wrapped-source location.
func (p Paths) SourcePath() string {
	return filepath.Join(p.ProjectRoot, p.Stem+".rs")
}

// DebugBinary is where cargo places a debug-profile build inside the
// shared target root, before the Cache step copies it to the executable
// cache.
func (p Paths) DebugBinary() string {
	name := p.Stem
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(p.TargetRoot, "debug", name)
}

// ReleaseBinary is where cargo places a release-profile build.
func (p Paths) ReleaseBinary() string {
	name := p.Stem
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(p.TargetRoot, "release", name)
}
