// Package classify implements the Classifier & Wrapper stage: deciding
// whether a parsed source is a program, a multi-program, or a snippet, and
// synthesising the program template for anything that isn't already one.
package classify

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"thag/internal/logging"
	"thag/internal/model"
	"thag/internal/synparse"
)

// PrepareForParse returns the text that should be handed to the AST Parser,
// applying the one transform that must happen *before* parsing: an
// Expression source is wrapped in braces and treated as a Snippet from then
// on. A LoopBody's body is brace-wrapped the same way and parsed on its own
// (the surrounding loop is synthesised later by Wrap). Program and Snippet
// sources are parsed as-is.
func PrepareForParse(src model.Source) string {
	switch src.Mode {
	case model.ModeExpression:
		return "{ " + src.Text + " }"
	case model.ModeLoopBody:
		return "{ " + src.Text + " }"
	default:
		return src.Text
	}
}

// Classify counts top-level fn main items in the parsed tree and returns
// the resulting ProgramKind. Expression and LoopBody sources are always
// classified as Snippet without inspecting the tree.
func Classify(h *synparse.Handle, src model.Source, multimain bool) (model.ProgramKind, error) {
	if src.Mode == model.ModeExpression || src.Mode == model.ModeLoopBody {
		return model.KindSnippet, nil
	}

	root := h.Root()
	count := countTopLevelMain(root, h.Source())

	switch {
	case count == 0:
		logging.Classify("no top-level fn main found; treating %q as a snippet", src.Name)
		return model.KindSnippet, nil
	case count == 1:
		return model.KindProgram, nil
	default:
		if multimain {
			logging.Classify("%d top-level fn main found in %q; multimain flag set", count, src.Name)
			return model.KindMultiProgram, nil
		}
		return model.KindProgram, fmt.Errorf("%w: found %d top-level fn main in %q", model.ErrAmbiguousEntryPoint, count, src.Name)
	}
}

// countTopLevelMain only inspects the root's direct named children; nested
// fn main inside a mod block is deliberately ignored for entry-point
// detection, preserving source-level test modules from breaking the
// heuristic.
func countTopLevelMain(root *sitter.Node, src []byte) int {
	count := 0
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "function_item" {
			continue
		}
		name := child.ChildByFieldName("name")
		if name != nil && string(src[name.StartByte():name.EndByte()]) == "main" {
			count++
		}
	}
	return count
}

// ShouldUnquote resolves the unquote policy: a CLI override always wins;
// otherwise the configured default applies.
func ShouldUnquote(configDefault bool, cliOverride *bool) bool {
	if cliOverride != nil {
		return *cliOverride
	}
	return configDefault
}

// Wrap produces the final compilable program text for the given source and
// classification. Program and MultiProgram sources pass through unchanged;
// the original text is always preserved in BuildState alongside whatever
// this returns.
func Wrap(src model.Source, kind model.ProgramKind, unquote bool) (string, error) {
	switch kind {
	case model.KindProgram, model.KindMultiProgram:
		return src.Text, nil
	case model.KindSnippet:
		switch src.Mode {
		case model.ModeLoopBody:
			return wrapLoopBody(src, unquote)
		default:
			return wrapSnippet(src.Text, unquote)
		}
	default:
		return "", fmt.Errorf("%w: unrecognised program kind", model.ErrSnippetNotExpression)
	}
}

// tailIsExpression applies the same heuristic real script runners use:
// a trailing semicolon means the last construct is a statement, not a value
// to print. Anything else, including a tail ending in a closing brace, is
// treated as a value-producing tail.
func tailIsExpression(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return false
	}
	return !strings.HasSuffix(trimmed, ";")
}

func wrapSnippet(text string, unquote bool) (string, error) {
	body := strings.TrimRight(text, " \t\n")
	if !tailIsExpression(body) {
		return fmt.Sprintf("fn main() {\n%s\n}\n", text), nil
	}

	verb := "{:?}"
	if unquote {
		verb = "{}"
	}
	return fmt.Sprintf(
		"fn main() {\n    let __thag_result = {\n%s\n    };\n    println!(\"%s\", __thag_result);\n}\n",
		indent(body, "        "), verb,
	), nil
}

// wrapLoopBody always prints a value-producing body unquoted: a loop runs
// once per input line and is almost always building an already-formatted
// line of output (format!, string concatenation), so the Debug-quoting
// that makes sense for a one-off snippet result would double-quote every
// line. The snippet unquote policy has no say here.
func wrapLoopBody(src model.Source, unquote bool) (string, error) {
	body := strings.TrimRight(src.Text, " \t\n")
	if body == "" {
		return "", fmt.Errorf("%w: loop body is empty", model.ErrSnippetNotExpression)
	}

	var emit string
	if tailIsExpression(body) {
		emit = "println!(\"{}\", __thag_result);"
	} else {
		emit = "let _ = __thag_result;"
	}

	var b strings.Builder
	b.WriteString("fn main() {\n")
	if src.LoopBegin != "" {
		b.WriteString(indent(src.LoopBegin, "    "))
		b.WriteString("\n")
	}
	b.WriteString("    use std::io::BufRead;\n")
	b.WriteString("    let __thag_stdin = std::io::stdin();\n")
	b.WriteString("    for (i, __thag_line) in __thag_stdin.lock().lines().enumerate() {\n")
	b.WriteString("        let line = __thag_line.unwrap();\n")
	b.WriteString("        let __thag_result = {\n")
	b.WriteString(indent(body, "            "))
	b.WriteString("\n        };\n")
	b.WriteString("        ")
	b.WriteString(emit)
	b.WriteString("\n    }\n")
	if src.LoopEnd != "" {
		b.WriteString(indent(src.LoopEnd, "    "))
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
