package model

// DependencySource distinguishes where a dependency's code comes from.
type DependencySource int

const (
	SourceRegistry DependencySource = iota
	SourceGit
	SourcePath
)

func (s DependencySource) String() string {
	switch s {
	case SourceRegistry:
		return "registry"
	case SourceGit:
		return "git"
	case SourcePath:
		return "path"
	default:
		return "unknown"
	}
}

// DependencySpec is one entry of the synthesised manifest's [dependencies]
// table. A bare version string is the common case; Features/Source/etc are
// populated only when the detailed table form is required.
type DependencySpec struct {
	Name            string
	Version         string
	Features        []string
	DefaultFeatures bool
	Source          DependencySource

	// Git/path coordinates, only meaningful when Source != SourceRegistry.
	GitURL string
	Rev    string
	Branch string
	Tag    string
	Path   string

	// FromUser marks an entry that came from the embedded manifest
	// fragment: its version/features/default-features are authoritative
	// and must not be overridden by inference or the registry.
	FromUser bool
}

// HasDetail reports whether this spec needs the table form
// (`name = { version = "...", features = [...] }`) rather than the bare
// string form (`name = "x.y"`).
func (d DependencySpec) HasDetail() bool {
	return len(d.Features) > 0 || !d.DefaultFeatures || d.Source != SourceRegistry
}

// Manifest is the pure-data mirror of a Cargo.toml-shaped manifest that the
// Synthesiser builds and the Build Orchestrator serialises to disk.
type Manifest struct {
	Dependencies map[string]DependencySpec

	// PassThrough holds verbatim TOML text for sections the Synthesiser
	// never interprets: [features], [patch.*], [profile.*], [[bin]],
	// [lints]. Keyed by section header, e.g. "features", "profile.release".
	PassThrough map[string]string

	// PackageName/Edition describe the synthesised [package] section.
	PackageName string
	Edition     string
}

// NewManifest returns an empty, ready-to-populate Manifest.
func NewManifest(packageName string) *Manifest {
	return &Manifest{
		Dependencies: make(map[string]DependencySpec),
		PassThrough:  make(map[string]string),
		PackageName:  packageName,
		Edition:      "2021",
	}
}
