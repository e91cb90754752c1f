package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"

	"thag/internal/config"
	"thag/internal/model"
	"thag/internal/procexec"
)

// fakeExecutor never shells out; it records what it was asked to run and
// reports success without touching the filesystem. Tests that exercise the
// pipeline up to (but not through) Build use this instead of a real cargo.
type fakeExecutor struct {
	calls []procexec.Command
}

func (f *fakeExecutor) Execute(ctx context.Context, cmd procexec.Command) (*procexec.ExecutionResult, error) {
	f.calls = append(f.calls, cmd)
	return &procexec.ExecutionResult{Success: true, ExitCode: 0}, nil
}

func (f *fakeExecutor) Capabilities() procexec.ExecutorCapabilities {
	return procexec.ExecutorCapabilities{Name: "fake"}
}

func (f *fakeExecutor) Validate(cmd procexec.Command) error { return nil }

func TestRun_GenerateOnly_Expression(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	d := New(config.Default())
	d.Executor = &fakeExecutor{}

	state := model.NewBuildState(
		model.Source{Text: "1 + 1", Mode: model.ModeExpression, Name: "demo"},
		model.Flags{Generate: true},
	)

	outcome, err := d.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome.SourceFallback {
		t.Fatalf("Run() took the source-analysis fallback for valid input")
	}
	if !strings.Contains(state.WrappedSource, "fn main") {
		t.Fatalf("WrappedSource missing fn main: %q", state.WrappedSource)
	}
	if _, err := os.Stat(state.ProjectDir); err != nil {
		t.Fatalf("project dir not created: %v", err)
	}
}

func TestRun_HardParseFailure_FallsBack(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	d := New(config.Default())
	d.Executor = &fakeExecutor{}

	state := model.NewBuildState(
		model.Source{Text: "fn main( { ", Mode: model.ModeProgram, Name: "broken"},
		model.Flags{Generate: true},
	)

	outcome, err := d.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !outcome.SourceFallback {
		t.Fatalf("Run() did not fall back on unparseable input")
	}
	if state.WrappedSource != state.Source.Text {
		t.Fatalf("fallback must hand the original source to cargo unchanged")
	}
}

func TestRun_Expand_StopsBeforeGenerate(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	d := New(config.Default())
	fe := &fakeExecutor{}
	d.Executor = fe

	state := model.NewBuildState(
		model.Source{Text: "1 + 1", Mode: model.ModeExpression, Name: "demo"},
		model.Flags{Run: true, Expand: true},
	)

	outcome, err := d.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(state.WrappedSource, "fn main") {
		t.Fatalf("WrappedSource missing fn main: %q", state.WrappedSource)
	}
	if _, statErr := os.Stat(state.ProjectDir); statErr == nil {
		t.Fatalf("--expand must stop before Generate writes the project to disk")
	}
	if len(fe.calls) != 0 {
		t.Fatalf("--expand must never invoke the executor, got %d calls", len(fe.calls))
	}
	if outcome.ExecutablePath != "" {
		t.Fatalf("outcome.ExecutablePath = %q, want empty (no build ran)", outcome.ExecutablePath)
	}
}

func TestRun_LoopToml_FeedsEmbeddedManifest(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	d := New(config.Default())
	d.Executor = &fakeExecutor{}

	state := model.NewBuildState(
		model.Source{
			Text: "format!(\"{}\", line)", Mode: model.ModeLoopBody, Name: "loop",
			LoopToml: "[dependencies]\nregex = \"1.10\"\n",
		},
		model.Flags{Generate: true},
	)

	if _, err := d.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	spec, ok := state.Manifest.Dependencies["regex"]
	if !ok {
		t.Fatalf("--toml dependency regex missing from synthesised manifest")
	}
	if spec.Version != "1.10" {
		t.Fatalf("Version = %q, want 1.10 from LoopToml", spec.Version)
	}
}

func TestRun_EmbeddedManifestSurvivesInference(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	d := New(config.Default())
	d.Executor = &fakeExecutor{}

	src := "/* [toml]\n[dependencies]\nserde = \"1.2.3\"\n*/\nuse serde::Serialize;\nfn main() {}\n"
	state := model.NewBuildState(
		model.Source{Text: src, Mode: model.ModeProgram, Name: "withtoml"},
		model.Flags{Generate: true},
	)

	if _, err := d.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	spec, ok := state.Manifest.Dependencies["serde"]
	if !ok {
		t.Fatalf("embedded dependency serde missing from synthesised manifest")
	}
	if spec.Version != "1.2.3" {
		t.Fatalf("Version = %q, want embedded 1.2.3", spec.Version)
	}
}
