package manifest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"thag/internal/model"
)

// Render serialises a Manifest to Cargo.toml-shaped text. Output is
// deterministic for a given Manifest value - dependencies are emitted in
// sorted-name order and pass-through sections in sorted-header order - so
// that identical (source, config) inputs produce byte-identical files, as
// the freshness contract in §3 requires.
func Render(m *model.Manifest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[package]\n")
	fmt.Fprintf(&b, "name = %s\n", quoteTOML(m.PackageName))
	fmt.Fprintf(&b, "version = \"0.0.1\"\n")
	fmt.Fprintf(&b, "edition = %s\n", quoteTOML(m.Edition))
	b.WriteString("\n[dependencies]\n")

	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b.WriteString(renderDependencyLine(name, m.Dependencies[name]))
		b.WriteString("\n")
	}

	headers := make([]string, 0, len(m.PassThrough))
	for h := range m.PassThrough {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	for _, h := range headers {
		section := m.PassThrough[h]
		if strings.TrimSpace(section) == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(section)
	}

	return b.String()
}

// renderDependencyLine emits the simple bare-string form when the spec has
// no detail to carry, and the inline-table form otherwise - per §4.4's
// "Detailed vs simple form" rule.
func renderDependencyLine(name string, spec model.DependencySpec) string {
	if spec.Source == model.SourceRegistry && !spec.HasDetail() {
		version := spec.Version
		if version == "" {
			version = "*"
		} else if !spec.FromUser {
			version = majorMinor(version)
		}
		return fmt.Sprintf("%s = %s", name, quoteTOML(version))
	}

	var parts []string
	switch spec.Source {
	case model.SourceGit:
		parts = append(parts, "git = "+quoteTOML(spec.GitURL))
		switch {
		case spec.Rev != "":
			parts = append(parts, "rev = "+quoteTOML(spec.Rev))
		case spec.Tag != "":
			parts = append(parts, "tag = "+quoteTOML(spec.Tag))
		case spec.Branch != "":
			parts = append(parts, "branch = "+quoteTOML(spec.Branch))
		}
	case model.SourcePath:
		parts = append(parts, "path = "+quoteTOML(spec.Path))
	default:
		version := spec.Version
		if version == "" {
			version = "*"
		} else if !spec.FromUser {
			version = majorMinor(version)
		}
		parts = append(parts, "version = "+quoteTOML(version))
	}

	if len(spec.Features) > 0 {
		sorted := append([]string{}, spec.Features...)
		sort.Strings(sorted)
		quoted := make([]string, len(sorted))
		for i, f := range sorted {
			quoted[i] = quoteTOML(f)
		}
		parts = append(parts, "features = ["+strings.Join(quoted, ", ")+"]")
	}
	if !spec.DefaultFeatures {
		parts = append(parts, "default-features = "+strconv.FormatBool(spec.DefaultFeatures))
	}

	return fmt.Sprintf("%s = { %s }", name, strings.Join(parts, ", "))
}

func quoteTOML(s string) string {
	return strconv.Quote(s)
}

// majorMinor truncates a version string to "major.minor" per §4.4: a
// version the Synthesiser chose itself (registry lookup or an inferred
// default) is rendered loosely so a later patch release still satisfies
// it. Only a version the user typed into an embedded fragment keeps its
// patch component - callers gate that by checking FromUser before calling
// this. Anything that doesn't parse as semver (a wildcard, a pre-release
// tag) is left untouched.
func majorMinor(version string) string {
	v, err := semver.NewVersion(version)
	if err != nil || v.Prerelease() != "" {
		return version
	}
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}
