package manifest

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"thag/internal/model"
)

// embeddedDoc is the shape BurntSushi/toml decodes a manifest fragment's
// [dependencies] table into. Each entry may be a bare version string or a
// detailed table; interface{} lets both forms decode without a custom
// UnmarshalTOML.
type embeddedDoc struct {
	Dependencies map[string]interface{} `toml:"dependencies"`
}

// EmbeddedManifest is the parsed form of a user's manifest fragment: the
// authoritative dependency specs plus the raw pass-through sections.
type EmbeddedManifest struct {
	Dependencies map[string]model.DependencySpec
	PassThrough  map[string]string
}

// ParseEmbedded decodes a manifest fragment's TOML body. A malformed
// fragment is reported as model.ErrManifestParse.
func ParseEmbedded(tomlText string) (*EmbeddedManifest, error) {
	var doc embeddedDoc
	if _, err := toml.Decode(tomlText, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrManifestParse, err)
	}

	deps := make(map[string]model.DependencySpec, len(doc.Dependencies))
	for name, raw := range doc.Dependencies {
		spec, err := decodeDependencyValue(name, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: dependency %q: %v", model.ErrManifestParse, name, err)
		}
		spec.FromUser = true
		deps[name] = spec
	}

	return &EmbeddedManifest{
		Dependencies: deps,
		PassThrough:  passThroughSections(tomlText),
	}, nil
}

func decodeDependencyValue(name string, raw interface{}) (model.DependencySpec, error) {
	spec := model.DependencySpec{Name: name, DefaultFeatures: true, Source: model.SourceRegistry}

	switch v := raw.(type) {
	case string:
		spec.Version = v
		return spec, nil

	case map[string]interface{}:
		if ver, ok := v["version"].(string); ok {
			spec.Version = ver
		}
		if feats, ok := v["features"].([]interface{}); ok {
			for _, f := range feats {
				if s, ok := f.(string); ok {
					spec.Features = append(spec.Features, s)
				}
			}
		}
		if df, ok := v["default-features"].(bool); ok {
			spec.DefaultFeatures = df
		}
		if git, ok := v["git"].(string); ok {
			spec.Source = model.SourceGit
			spec.GitURL = git
		}
		if rev, ok := v["rev"].(string); ok {
			spec.Rev = rev
		}
		if branch, ok := v["branch"].(string); ok {
			spec.Branch = branch
		}
		if tag, ok := v["tag"].(string); ok {
			spec.Tag = tag
		}
		if path, ok := v["path"].(string); ok {
			spec.Source = model.SourcePath
			spec.Path = path
		}
		return spec, nil

	default:
		return spec, fmt.Errorf("unsupported dependency value shape %T", raw)
	}
}
