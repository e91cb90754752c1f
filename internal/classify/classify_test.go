package classify

import (
	"context"
	"strings"
	"testing"

	"thag/internal/model"
	"thag/internal/synparse"
)

func parseFor(t *testing.T, text string) *synparse.Handle {
	t.Helper()
	p := synparse.New()
	h, _, err := p.Parse(context.Background(), text)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", text, err)
	}
	return h
}

func TestClassify_Program(t *testing.T) {
	src := model.Source{Mode: model.ModeProgram, Text: `fn main() { println!("hi"); }`, Name: "prog"}
	h := parseFor(t, src.Text)
	kind, err := Classify(h, src, false)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if kind != model.KindProgram {
		t.Fatalf("Classify() = %v, want Program", kind)
	}
}

func TestClassify_Snippet(t *testing.T) {
	src := model.Source{Mode: model.ModeSnippet, Text: `let x = 1 + 1;\nx`, Name: "snip"}
	h := parseFor(t, src.Text)
	kind, err := Classify(h, src, false)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if kind != model.KindSnippet {
		t.Fatalf("Classify() = %v, want Snippet", kind)
	}
}

func TestClassify_MultiMainRequiresFlag(t *testing.T) {
	text := `fn main() {} fn main() {}`
	src := model.Source{Mode: model.ModeProgram, Text: text, Name: "multi"}
	h := parseFor(t, text)

	if _, err := Classify(h, src, false); err == nil {
		t.Fatalf("Classify() without multimain flag: want error, got nil")
	}

	kind, err := Classify(h, src, true)
	if err != nil {
		t.Fatalf("Classify() with multimain flag: unexpected error: %v", err)
	}
	if kind != model.KindMultiProgram {
		t.Fatalf("Classify() = %v, want MultiProgram", kind)
	}
}

func TestClassify_NestedMainIgnored(t *testing.T) {
	text := `fn main() {} mod tests { fn main() {} }`
	src := model.Source{Mode: model.ModeProgram, Text: text, Name: "nested"}
	h := parseFor(t, text)

	kind, err := Classify(h, src, false)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if kind != model.KindProgram {
		t.Fatalf("Classify() = %v, want Program (nested main must not count)", kind)
	}
}

func TestWrap_SnippetTailExpression(t *testing.T) {
	src := model.Source{Mode: model.ModeSnippet, Text: "let x = 2;\nx * 2", Name: "snip"}
	out, err := Wrap(src, model.KindSnippet, false)
	if err != nil {
		t.Fatalf("Wrap() error: %v", err)
	}
	if !strings.Contains(out, "println!(\"{:?}\"") {
		t.Fatalf("Wrap() = %q, want Debug-format println", out)
	}
}

func TestWrap_SnippetTailExpressionUnquoted(t *testing.T) {
	src := model.Source{Mode: model.ModeSnippet, Text: `"hello".to_string()`, Name: "snip"}
	out, err := Wrap(src, model.KindSnippet, true)
	if err != nil {
		t.Fatalf("Wrap() error: %v", err)
	}
	if !strings.Contains(out, "println!(\"{}\"") {
		t.Fatalf("Wrap() = %q, want Display-format println", out)
	}
}

func TestWrap_SnippetStatementTail(t *testing.T) {
	src := model.Source{Mode: model.ModeSnippet, Text: `println!("done");`, Name: "snip"}
	out, err := Wrap(src, model.KindSnippet, false)
	if err != nil {
		t.Fatalf("Wrap() error: %v", err)
	}
	if strings.Contains(out, "__thag_result") {
		t.Fatalf("Wrap() = %q, did not expect a result binding for a statement tail", out)
	}
}

func TestWrap_ProgramPassesThrough(t *testing.T) {
	text := `fn main() { println!("hi"); }`
	src := model.Source{Mode: model.ModeProgram, Text: text, Name: "prog"}
	out, err := Wrap(src, model.KindProgram, false)
	if err != nil {
		t.Fatalf("Wrap() error: %v", err)
	}
	if out != text {
		t.Fatalf("Wrap() = %q, want unchanged %q", out, text)
	}
}

func TestWrap_LoopBody(t *testing.T) {
	src := model.Source{
		Mode:      model.ModeLoopBody,
		Text:      `format!("{i}.\t{line}")`,
		LoopBegin: "",
		LoopEnd:   "",
	}
	out, err := Wrap(src, model.KindSnippet, false)
	if err != nil {
		t.Fatalf("Wrap() error: %v", err)
	}
	for _, want := range []string{"stdin", "lines()", "println!(\"{}\", __thag_result)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Wrap() = %q, missing %q", out, want)
		}
	}
}

func TestShouldUnquote(t *testing.T) {
	yes, no := true, false
	if !ShouldUnquote(false, &yes) {
		t.Fatalf("ShouldUnquote: CLI override should win")
	}
	if ShouldUnquote(true, &no) {
		t.Fatalf("ShouldUnquote: CLI override should win")
	}
	if ShouldUnquote(true, nil) != true {
		t.Fatalf("ShouldUnquote: nil override should fall back to config default")
	}
}
