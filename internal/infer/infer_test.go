package infer

import (
	"context"
	"testing"

	"thag/internal/config"
	"thag/internal/synparse"
)

func parse(t *testing.T, src string) *synparse.Handle {
	t.Helper()
	p := synparse.New()
	handle, _, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return handle
}

func TestInfer_ExcludesSelfReference(t *testing.T) {
	src := "use my_tool::helper;\nfn main() { my_tool::helper::run(); }\n"
	handle := parse(t, src)

	result := Infer(handle, config.InferenceConfig{Level: config.LevelMinimal}, map[string]bool{}, "my_tool")
	if _, ok := result.Drafts["my_tool"]; ok {
		t.Fatalf("Infer() kept my_tool as a dependency draft, want it excluded as self-reference")
	}
}

func TestInfer_SelfReferenceNormalizesHyphenUnderscore(t *testing.T) {
	src := "use my_tool::helper;\n"
	handle := parse(t, src)

	result := Infer(handle, config.InferenceConfig{Level: config.LevelMinimal}, map[string]bool{}, "my-tool")
	if _, ok := result.Drafts["my_tool"]; ok {
		t.Fatalf("Infer() kept my_tool as a dependency draft, want it excluded against package name my-tool")
	}
}

func TestInfer_KeepsUnrelatedCrates(t *testing.T) {
	src := "use serde::Serialize;\nfn main() {}\n"
	handle := parse(t, src)

	result := Infer(handle, config.InferenceConfig{Level: config.LevelMinimal}, map[string]bool{}, "my_tool")
	if _, ok := result.Drafts["serde"]; !ok {
		t.Fatalf("Infer() dropped serde, want it kept as a candidate")
	}
}
