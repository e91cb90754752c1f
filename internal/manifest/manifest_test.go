package manifest

import (
	"strings"
	"testing"

	"thag/internal/config"
	"thag/internal/model"
)

func TestExtractEmbeddedFragment(t *testing.T) {
	src := "/*\n[toml]\n[dependencies]\nserde = \"1\"\n*/\nfn main() {}\n"
	text, ok := ExtractEmbeddedFragment(src)
	if !ok {
		t.Fatalf("ExtractEmbeddedFragment() ok = false, want true")
	}
	if !strings.Contains(text, "serde") {
		t.Fatalf("ExtractEmbeddedFragment() = %q, missing serde entry", text)
	}
}

func TestExtractEmbeddedFragment_Absent(t *testing.T) {
	if _, ok := ExtractEmbeddedFragment("fn main() {}"); ok {
		t.Fatalf("ExtractEmbeddedFragment() ok = true, want false for plain source")
	}
}

func TestParseEmbedded_DetailedAndSimpleForms(t *testing.T) {
	text := `
[dependencies]
prettyplease = "0.2"
syn = { version = "2", default-features = false, features = ["full", "parsing"] }
`
	em, err := ParseEmbedded(text)
	if err != nil {
		t.Fatalf("ParseEmbedded() error: %v", err)
	}

	pp, ok := em.Dependencies["prettyplease"]
	if !ok || pp.Version != "0.2" {
		t.Fatalf("prettyplease = %+v, want version 0.2", pp)
	}

	syn, ok := em.Dependencies["syn"]
	if !ok {
		t.Fatalf("syn dependency missing")
	}
	if syn.DefaultFeatures {
		t.Fatalf("syn.DefaultFeatures = true, want false")
	}
	if len(syn.Features) != 2 {
		t.Fatalf("syn.Features = %v, want 2 entries", syn.Features)
	}
}

func TestSynthesise_EmbeddedVersionIsAuthoritative(t *testing.T) {
	embedded := &EmbeddedManifest{
		Dependencies: map[string]model.DependencySpec{
			"syn": {Name: "syn", Version: "1.2.3", DefaultFeatures: true, Source: model.SourceRegistry, FromUser: true},
		},
	}
	cfg := config.Default()
	cfg.Inference.Level = config.LevelMaximal

	resolver := func(name string, excludePrerelease bool) (string, []string, error) {
		return "9.9.9", []string{"unused"}, nil
	}

	out, _, err := Synthesise("thag_script", cfg, map[string]*model.DependencySpec{}, embedded, resolver)
	if err != nil {
		t.Fatalf("Synthesise() error: %v", err)
	}

	syn := out.Dependencies["syn"]
	if syn.Version != "1.2.3" {
		t.Fatalf("syn.Version = %q, want 1.2.3 (embedded must win over registry)", syn.Version)
	}
}

func TestRender_SimpleAndDetailedForms(t *testing.T) {
	m := model.NewManifest("thag_script")
	m.Dependencies["prettyplease"] = model.DependencySpec{Name: "prettyplease", Version: "0.2", DefaultFeatures: true, Source: model.SourceRegistry}
	m.Dependencies["syn"] = model.DependencySpec{Name: "syn", Version: "2.1", DefaultFeatures: false, Features: []string{"full", "parsing"}, Source: model.SourceRegistry}

	text := Render(m)
	if !strings.Contains(text, `prettyplease = "0.2"`) {
		t.Fatalf("Render() = %q, want bare-string form for prettyplease", text)
	}
	if !strings.Contains(text, `syn = { version = "2.1", features = ["full", "parsing"], default-features = false }`) {
		t.Fatalf("Render() = %q, want detailed table form for syn", text)
	}
}

func TestRender_TruncatesNonUserVersionToMajorMinor(t *testing.T) {
	m := model.NewManifest("thag_script")
	m.Dependencies["serde"] = model.DependencySpec{Name: "serde", Version: "1.2.3", DefaultFeatures: true, Source: model.SourceRegistry}
	m.Dependencies["syn"] = model.DependencySpec{
		Name: "syn", Version: "2.5.9", DefaultFeatures: false, Source: model.SourceRegistry, FromUser: true,
	}

	text := Render(m)
	if !strings.Contains(text, `serde = "1.2"`) {
		t.Fatalf("Render() = %q, want inferred serde truncated to 1.2", text)
	}
	if !strings.Contains(text, `version = "2.5.9"`) {
		t.Fatalf("Render() = %q, want user-supplied syn version kept at full precision", text)
	}
}

func TestRender_Idempotent(t *testing.T) {
	m := model.NewManifest("thag_script")
	m.Dependencies["serde"] = model.DependencySpec{Name: "serde", Version: "1", DefaultFeatures: true, Source: model.SourceRegistry}

	first := Render(m)
	second := Render(m)
	if first != second {
		t.Fatalf("Render() not idempotent:\n%q\n%q", first, second)
	}
}
