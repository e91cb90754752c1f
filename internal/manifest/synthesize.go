package manifest

import (
	"sort"
	"strings"

	"thag/internal/config"
	"thag/internal/logging"
	"thag/internal/model"
)

// Resolver is the Registry Resolver's contract as seen by the Synthesiser.
// Kept as a function type here rather than importing the registry package,
// so manifest has no dependency on network code and is trivially testable.
type Resolver func(name string, excludePrerelease bool) (version string, features []string, err error)

// Synthesise merges inferred drafts with the embedded fragment under the
// configured policy and produces the final Manifest plus its serialised
// TOML text. Precedence (high to low): embedded fragment, per-crate
// overrides, inferred features, registry defaults.
func Synthesise(packageName string, cfg *config.Config, drafts map[string]*model.DependencySpec, embedded *EmbeddedManifest, resolve Resolver) (*model.Manifest, []string, error) {
	out := model.NewManifest(packageName)
	var warnings []string

	embeddedDeps := map[string]model.DependencySpec{}
	passThrough := map[string]string{}
	if embedded != nil {
		embeddedDeps = embedded.Dependencies
		passThrough = embedded.PassThrough
	}
	out.PassThrough = passThrough

	// Embedded entries are authoritative for version/features/default-features.
	for name, spec := range embeddedDeps {
		final := spec
		if cfg.Inference.Level != config.LevelNone {
			if draft, ok := drafts[name]; ok {
				final.Features = unionStrings(final.Features, draft.Features)
			}
		}
		out.Dependencies[name] = final
	}

	// Inferred-only crates: not present in the embedded fragment.
	for name, draft := range drafts {
		if _, already := embeddedDeps[name]; already {
			continue
		}

		spec := *draft
		// Minimal (and below) emits names only: no per-crate overrides and
		// no feature policy.
		applyPolicy := cfg.Inference.Level.Rank() >= config.LevelConfig.Rank()
		var override config.FeatureOverride
		if applyPolicy {
			override = cfg.Inference.PerCrate[name]
		}
		spec.Features = unionStrings(spec.Features, override.RequiredFeatures)
		if override.DefaultFeatures != nil {
			spec.DefaultFeatures = *override.DefaultFeatures
		}

		var published []string
		if cfg.Inference.Level == config.LevelMaximal {
			version, feats, err := resolve(name, cfg.Inference.ExcludePrerelease)
			if err != nil {
				warnings = append(warnings, "registry lookup failed for "+name+": "+err.Error())
				logging.RegistryWarn("resolve(%s) failed: %v", name, err)
			} else {
				spec.Version = version
				published = feats
				spec.Features = unionStrings(spec.Features, feats)
			}
		} else if spec.Version == "" {
			version, _, err := resolve(name, cfg.Inference.ExcludePrerelease)
			if err != nil {
				warnings = append(warnings, "registry lookup failed for "+name+"; emitting wildcard version")
				logging.RegistryWarn("resolve(%s) failed: %v", name, err)
				spec.Version = "*"
			} else {
				spec.Version = version
			}
		}

		if applyPolicy {
			spec.Features = applyFeaturePolicy(spec.Features, override, cfg.Inference, published)
		}
		out.Dependencies[name] = spec
	}

	return out, warnings, nil
}

// applyFeaturePolicy implements §4.4's feature computation formula.
func applyFeaturePolicy(features []string, override config.FeatureOverride, cfg config.InferenceConfig, published []string) []string {
	result := unionStrings(features, override.RequiredFeatures)
	result = subtractStrings(result, override.ExcludedFeatures)
	result = subtractStrings(result, cfg.GlobalExcludedFeatures)

	if cfg.ExcludeUnstableFeatures {
		filtered := result[:0:0]
		for _, f := range result {
			if !strings.Contains(f, "unstable") {
				filtered = append(filtered, f)
			}
		}
		result = filtered
	}
	if cfg.ExcludeStdFeature {
		result = subtractStrings(result, []string{"std"})
	}

	for _, always := range cfg.AlwaysIncludeFeatures {
		if !publishes(published, always) {
			continue
		}
		found := false
		for _, f := range result {
			if f == always {
				found = true
				break
			}
		}
		if !found {
			result = append(result, always)
		}
	}

	sort.Strings(result)
	return result
}

func publishes(published []string, feature string) bool {
	if published == nil {
		// No registry data available (not Maximal level): assume the
		// always-include feature is valid; the build tool will report
		// ErrorKind::FeatureNotPublished if it isn't.
		return true
	}
	for _, f := range published {
		if f == feature {
			return true
		}
	}
	return false
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

func subtractStrings(a, exclude []string) []string {
	if len(exclude) == 0 {
		return a
	}
	excl := make(map[string]bool, len(exclude))
	for _, s := range exclude {
		excl[s] = true
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if !excl[s] {
			out = append(out, s)
		}
	}
	return out
}
