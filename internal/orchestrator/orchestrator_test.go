package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGenerate_IdempotentPreservesMTime(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	paths := NewPaths("demo")
	paths.ProjectRoot = filepath.Join(tmp, "proj")

	if _, err := Generate(paths, "fn main() {}", "[package]\n"); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	info1, err := os.Stat(paths.SourcePath())
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	changed, err := Generate(paths, "fn main() {}", "[package]\n")
	if err != nil {
		t.Fatalf("Generate() second call error: %v", err)
	}
	if changed {
		t.Fatalf("Generate() reported changed on identical content")
	}
	info2, err := os.Stat(paths.SourcePath())
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Fatalf("Generate() changed mtime on identical content: %v -> %v", info1.ModTime(), info2.ModTime())
	}
}

func TestGenerate_RewritesOnChange(t *testing.T) {
	tmp := t.TempDir()
	paths := NewPaths("demo")
	paths.ProjectRoot = filepath.Join(tmp, "proj")

	if _, err := Generate(paths, "fn main() {}", "[package]\n"); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	changed, err := Generate(paths, "fn main() { println!(\"x\"); }", "[package]\n")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !changed {
		t.Fatalf("Generate() reported unchanged after an edit")
	}
}

func TestIsFresh(t *testing.T) {
	tmp := t.TempDir()
	paths := NewPaths("demo")
	paths.BinRoot = tmp
	paths.Executable = filepath.Join(tmp, "demo")
	paths.ProjectRoot = filepath.Join(tmp, "proj")

	if err := os.WriteFile(paths.Executable, []byte("binary"), 0o755); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	if !IsFresh(paths, past) {
		t.Fatalf("IsFresh() = false, want true when source predates executable")
	}

	future := time.Now().Add(time.Hour)
	if IsFresh(paths, future) {
		t.Fatalf("IsFresh() = true, want false when source postdates executable")
	}
}
