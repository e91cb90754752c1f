// Package synparse wraps the tree-sitter Rust grammar behind the Core's
// parse contract: program-parse-success, partial-parse-with-diagnostics, or
// hard failure that sends the pipeline to source-analysis fallback.
package synparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"thag/internal/logging"
	"thag/internal/model"
)

// Handle is the concrete model.ASTHandle for a parsed Rust source tree.
// Other stages (classify, infer) take *Handle directly to reach the
// underlying tree; model itself never depends on sitter.
type Handle struct {
	tree   *sitter.Tree
	source []byte
	valid  bool
}

// Valid implements model.ASTHandle.
func (h *Handle) Valid() bool { return h.valid }

// Root returns the parsed tree's root node.
func (h *Handle) Root() *sitter.Node { return h.tree.RootNode() }

// Source returns the exact byte slice that was parsed, for node-text slicing.
func (h *Handle) Source() []byte { return h.source }

// Close releases the underlying tree-sitter tree.
func (h *Handle) Close() {
	if h.tree != nil {
		h.tree.Close()
	}
}

// Parser holds one tree-sitter parser instance configured for Rust.
// It is not safe for concurrent use; the Pipeline Driver is single-threaded
// per invocation so one Parser per invocation is the expected lifetime.
type Parser struct {
	sp *sitter.Parser
}

// New returns a Parser ready to parse Rust source text.
func New() *Parser {
	sp := sitter.NewParser()
	sp.SetLanguage(rust.GetLanguage())
	return &Parser{sp: sp}
}

// Parse produces a Handle plus any diagnostics collected along the way. A
// non-nil error means the tree is unusable for inference and the caller
// must fall back to source-analysis mode with the original text.
func (p *Parser) Parse(ctx context.Context, text string) (*Handle, []model.ParseDiagnostic, error) {
	timer := logging.StartTimer(logging.CategoryParse, "parse")
	defer timer.Stop()

	src := []byte(text)
	tree, err := p.sp.ParseCtx(ctx, nil, src)
	if err != nil {
		logging.ParseWarn("tree-sitter parse returned an error: %v", err)
		return nil, []model.ParseDiagnostic{{Fatal: true, Message: err.Error()}}, fmt.Errorf("parse: %w", err)
	}

	root := tree.RootNode()
	var diags []model.ParseDiagnostic
	if root.HasError() {
		collectErrorDiagnostics(root, src, &diags)
	}

	fatal := root.IsError() || (len(text) > 0 && root.ChildCount() == 0)
	handle := &Handle{tree: tree, source: src, valid: !fatal}

	if fatal {
		logging.ParseWarn("parse produced no usable syntax tree; falling back to source-analysis mode")
		return handle, diags, fmt.Errorf("parse: %w", errHardFailure)
	}

	logging.ParseDebug("parsed %d bytes, %d diagnostics", len(text), len(diags))
	return handle, diags, nil
}

var errHardFailure = fmt.Errorf("hard parse failure")

// collectErrorDiagnostics walks the tree looking for ERROR nodes and missing
// tokens, recording a non-fatal diagnostic for each. These are surfaced to
// the user at verbose levels even when the overall parse is usable.
func collectErrorDiagnostics(n *sitter.Node, src []byte, diags *[]model.ParseDiagnostic) {
	if n.IsMissing() {
		*diags = append(*diags, model.ParseDiagnostic{
			Fatal:   false,
			Message: fmt.Sprintf("missing token near %q", textAround(n, src)),
			Line:    int(n.StartPoint().Row) + 1,
		})
	} else if n.Type() == "ERROR" {
		*diags = append(*diags, model.ParseDiagnostic{
			Fatal:   false,
			Message: fmt.Sprintf("unexpected token %q", string(src[n.StartByte():n.EndByte()])),
			Line:    int(n.StartPoint().Row) + 1,
		})
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		collectErrorDiagnostics(n.Child(i), src, diags)
	}
}

func textAround(n *sitter.Node, src []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(src) {
		end = uint32(len(src))
	}
	if start >= end {
		return ""
	}
	return string(src[start:end])
}
