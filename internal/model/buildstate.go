package model

// Flags are the process-level switches a front-end derives from CLI flags
// or REPL commands and hands to the Pipeline Driver for one invocation.
// They modulate state transitions rather than being read ad hoc by stages.
type Flags struct {
	Generate bool // generate the project; without Build or Run the pipeline stops after Generate
	Build    bool // run cargo build even if an executable is already cached
	Run      bool // execute the built binary after a successful build
	Force    bool // ignore freshness entirely; always regenerate and rebuild
	NoRun    bool // build only, never execute (overrides Run)

	// Multimain permits more than one top-level fn main instead of
	// failing classification with AmbiguousEntryPoint.
	Multimain bool

	// Executable, when set, names a directory: the binary is release-built
	// and copied into it instead of being cached in the per-script bin
	// cache and run.
	Executable string

	Expand bool // print the wrapped source and stop before Generate
	Quiet  int  // 2 or more suppresses thag's warnings; cargo output is always shown
	Timings bool // record and print per-stage durations

	// CargoSubcommand, when non-empty, switches the Build Orchestrator
	// from its build/run sequence to a passthrough invocation of
	// `cargo <subcommand> <Args...>` inside the generated project.
	CargoSubcommand string

	// Args are extra arguments forwarded to the built binary (Run mode) or
	// to the passthrough cargo subcommand.
	Args []string
}

// ASTHandle is an opaque reference to a parsed tree, owned by the AST Parser
// stage. The model package only needs to move it between stages; it never
// inspects the tree itself.
type ASTHandle interface {
	// Valid reports whether the parse succeeded well enough for the
	// Inferrer and Classifier to rely on it.
	Valid() bool
}

// BuildState is the value threaded through the Pipeline Driver's state
// machine from Classify through Run. Each stage reads the fields it needs
// and fills in the ones it owns; nothing here is process-global.
type BuildState struct {
	Source Source
	Flags  Flags

	// Populated by Classify.
	Kind ProgramKind

	// Populated by Parse.
	AST         ASTHandle
	Diagnostics []ParseDiagnostic

	// Populated by Classify/Wrap once Kind is known.
	WrappedSource string

	// Populated by Infer.
	CrateRefs []CrateReference

	// Populated by Manifest synthesis.
	Manifest     *Manifest
	ManifestTOML string

	// Populated by the Build Orchestrator's path layout step.
	ProjectDir     string
	TargetDir      string
	ExecutablePath string

	// Fresh is true when a previously cached executable is newer than the
	// source and manifest and can be run without rebuilding.
	Fresh bool

	// StageTimings records wall-clock duration per named stage, populated
	// only when Flags.Timings is set.
	StageTimings map[string]int64 // nanoseconds, keyed by stage name
}

// NewBuildState constructs a BuildState ready for the Classify stage.
func NewBuildState(src Source, flags Flags) *BuildState {
	return &BuildState{
		Source:       src,
		Flags:        flags,
		StageTimings: make(map[string]int64),
	}
}
