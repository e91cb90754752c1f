// Package pipeline implements the Pipeline Driver: the state machine that
// links classification, parsing, inference, manifest synthesis, build
// orchestration, and run into one invocation (§4.7).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"thag/internal/classify"
	"thag/internal/config"
	"thag/internal/infer"
	"thag/internal/logging"
	"thag/internal/manifest"
	"thag/internal/model"
	"thag/internal/orchestrator"
	"thag/internal/procexec"
	"thag/internal/registry"
	"thag/internal/synparse"
)

// Driver owns the collaborators one pipeline invocation needs. It holds no
// per-invocation state itself; everything accumulates in the BuildState
// passed to Run.
type Driver struct {
	Config   *config.Config
	Parser   *synparse.Parser
	Resolver *registry.Resolver
	Executor procexec.Executor
}

// New builds a Driver from a fully-resolved configuration.
func New(cfg *config.Config) *Driver {
	return &Driver{
		Config:   cfg,
		Parser:   synparse.New(),
		Resolver: registry.New(cfg.Registry.BaseURL, time.Duration(cfg.Registry.TimeoutSeconds)*time.Second),
		Executor: procexec.NewDirectExecutor(),
	}
}

// Outcome is what Run reports back to the caller (§6 outputs).
type Outcome struct {
	ExecutablePath string
	ExitCode       int
	Diagnostics    []model.ParseDiagnostic
	Warnings       []string
	ManifestText   string
	SourceFallback bool
}

// Run drives one script through Parse -> Classify -> Wrap -> Infer ->
// Synthesise -> Generate -> [fresh? Run : Build -> Cache -> Run], honouring
// the flags in state.Flags.
func (d *Driver) Run(ctx context.Context, state *model.BuildState) (*Outcome, error) {
	outcome := &Outcome{}
	logging.Pipeline("starting pipeline for %q (mode=%s)", state.Source.Name, state.Source.Mode)

	stem := state.Source.Name
	if stem == "" {
		stem = "thag_script"
	}
	paths := orchestrator.NewPaths(stem)
	state.ProjectDir = paths.ProjectRoot
	state.TargetDir = paths.TargetRoot
	state.ExecutablePath = paths.Executable

	orch := &orchestrator.Orchestrator{Paths: paths, Executor: d.Executor}

	embedded, err := d.parseEmbedded(state.Source)
	if err != nil {
		return outcome, err
	}

	parseText := classify.PrepareForParse(state.Source)
	parseStart := time.Now()
	handle, diags, parseErr := d.Parser.Parse(ctx, parseText)
	d.recordStage(state, "parse", parseStart)

	outcome.Diagnostics = diags
	state.Diagnostics = diags
	state.AST = handle

	if parseErr != nil {
		return d.runSourceFallback(ctx, state, orch, embedded, outcome)
	}

	kind, err := classify.Classify(handle, state.Source, state.Flags.Multimain)
	if err != nil {
		return outcome, err
	}
	state.Kind = kind

	unquote := classify.ShouldUnquote(d.Config.Unquote, nil)
	wrapped, err := classify.Wrap(state.Source, kind, unquote)
	if err != nil {
		return outcome, err
	}
	state.WrappedSource = wrapped

	embeddedNames := map[string]bool{}
	for name := range embedded.Dependencies {
		embeddedNames[name] = true
	}
	inferStart := time.Now()
	inferResult := infer.Infer(handle, d.Config.Inference, embeddedNames, stem)
	d.recordStage(state, "infer", inferStart)
	state.CrateRefs = inferResult.References

	synthStart := time.Now()
	manifestValue, warnings, err := manifest.Synthesise(stem, d.Config, inferResult.Drafts, embedded, d.Resolver.Resolve)
	d.recordStage(state, "synthesise", synthStart)
	if err != nil {
		return outcome, err
	}
	state.Manifest = manifestValue
	state.ManifestTOML = manifest.Render(manifestValue)
	outcome.Warnings = append(outcome.Warnings, warnings...)
	outcome.ManifestText = state.ManifestTOML

	return d.continueAfterGenerate(ctx, state, orch, outcome)
}

// runSourceFallback implements §4.2's hard-failure path: the original,
// unwrapped source is handed to cargo so the real compiler can point at
// the right line. No inference runs.
func (d *Driver) runSourceFallback(ctx context.Context, state *model.BuildState, orch *orchestrator.Orchestrator, embedded *manifest.EmbeddedManifest, outcome *Outcome) (*Outcome, error) {
	logging.PipelineDebug("parse failed; falling back to source-analysis mode")
	outcome.SourceFallback = true

	state.WrappedSource = state.Source.Text
	manifestValue, warnings, err := manifest.Synthesise(state.Source.Name, d.Config, map[string]*model.DependencySpec{}, embedded, d.Resolver.Resolve)
	if err != nil {
		return outcome, err
	}
	state.Manifest = manifestValue
	state.ManifestTOML = manifest.Render(manifestValue)
	outcome.Warnings = append(outcome.Warnings, warnings...)

	return d.continueAfterGenerate(ctx, state, orch, outcome)
}

func (d *Driver) continueAfterGenerate(ctx context.Context, state *model.BuildState, orch *orchestrator.Orchestrator, outcome *Outcome) (*Outcome, error) {
	if state.Flags.Expand {
		logging.Pipeline("--expand for %q, stopping before generate", state.Source.Name)
		return outcome, nil
	}

	genStart := time.Now()
	_, err := orchestrator.Generate(orch.Paths, state.WrappedSource, state.ManifestTOML)
	d.recordStage(state, "generate", genStart)
	if err != nil {
		return outcome, err
	}

	if state.Flags.Generate && !state.Flags.Build && !state.Flags.Run {
		logging.Pipeline("generate-only invocation for %q, stopping before build", state.Source.Name)
		return outcome, nil
	}

	if state.Flags.CargoSubcommand != "" {
		subStart := time.Now()
		err := orch.RunSubcommand(ctx, state.Flags.CargoSubcommand, state.Flags.Args)
		d.recordStage(state, "cargo-subcommand", subStart)
		return outcome, err
	}

	// Generate only rewrites the wrapped source when its content changes, so
	// for a file-origin script its mtime stands in for the script's own.
	// Other origins always count as newer than the cached executable.
	sourceModTime := time.Now()
	if state.Source.Origin == model.OriginFile {
		if info, statErr := os.Stat(orch.Paths.SourcePath()); statErr == nil {
			sourceModTime = info.ModTime()
		}
	}
	state.Fresh = !state.Flags.Force && state.Flags.Executable == "" && orchestrator.IsFresh(orch.Paths, sourceModTime)

	if state.Fresh && !state.Flags.Build && !state.Flags.Generate {
		logging.Pipeline("executable for %q is fresh, skipping build", state.Source.Name)
		return d.finish(ctx, state, orch, outcome)
	}

	release := state.Flags.Executable != ""
	buildStart := time.Now()
	err = orch.Build(ctx, release)
	d.recordStage(state, "build", buildStart)
	if err != nil {
		return outcome, err
	}

	if release {
		dest, err := orch.CopyReleaseToUserBin(state.Flags.Executable)
		if err != nil {
			return outcome, err
		}
		outcome.ExecutablePath = dest
		return outcome, nil
	}

	cacheStart := time.Now()
	err = orch.CacheDebugBinary()
	d.recordStage(state, "cache", cacheStart)
	if err != nil {
		return outcome, err
	}

	return d.finish(ctx, state, orch, outcome)
}

func (d *Driver) finish(ctx context.Context, state *model.BuildState, orch *orchestrator.Orchestrator, outcome *Outcome) (*Outcome, error) {
	outcome.ExecutablePath = orch.Paths.Executable

	if state.Flags.NoRun || !state.Flags.Run {
		return outcome, nil
	}

	runStart := time.Now()
	exitCode, err := orch.Run(ctx, state.Flags.Args)
	d.recordStage(state, "run", runStart)
	outcome.ExitCode = exitCode
	return outcome, err
}

// parseEmbedded locates the embedded manifest fragment for src. A
// /* [toml] ... */ block comment in the source text takes precedence; in
// loop-body mode, with no such block present, src.LoopToml (the --toml
// flag's fragment, which never appears in the loop body's own text) is
// parsed as the embedded manifest instead.
func (d *Driver) parseEmbedded(src model.Source) (*manifest.EmbeddedManifest, error) {
	tomlText, ok := manifest.ExtractEmbeddedFragment(src.Text)
	if !ok && src.Mode == model.ModeLoopBody && strings.TrimSpace(src.LoopToml) != "" {
		tomlText, ok = src.LoopToml, true
	}
	if !ok {
		return &manifest.EmbeddedManifest{Dependencies: map[string]model.DependencySpec{}, PassThrough: map[string]string{}}, nil
	}
	em, err := manifest.ParseEmbedded(tomlText)
	if err != nil {
		return nil, fmt.Errorf("embedded manifest: %w", err)
	}
	return em, nil
}

// recordStage stores a stage's wall-clock duration on the build state, but
// only when the caller asked for timings; otherwise it's a no-op so a plain
// invocation doesn't pay for a map nobody reads.
func (d *Driver) recordStage(state *model.BuildState, stage string, start time.Time) {
	if !state.Flags.Timings {
		return
	}
	if state.StageTimings == nil {
		state.StageTimings = make(map[string]int64)
	}
	state.StageTimings[stage] = time.Since(start).Nanoseconds()
}
