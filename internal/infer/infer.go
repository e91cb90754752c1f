// Package infer implements the Dependency Inferrer: a single tree walk that
// collects every external-crate candidate referenced by the parsed program,
// classifies where each was seen, resolves renames, and reduces the result
// under the configured inference level.
package infer

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"thag/internal/config"
	"thag/internal/logging"
	"thag/internal/model"
	"thag/internal/synparse"
)

// reservedKeywords and primitive type names are never candidates; they are
// never crate names in valid Rust.
var reservedKeywords = map[string]bool{
	"self": true, "super": true, "crate": true, "Self": true,
	"fn": true, "let": true, "mut": true, "pub": true, "impl": true,
	"struct": true, "enum": true, "trait": true, "mod": true, "use": true,
	"match": true, "if": true, "else": true, "for": true, "while": true,
	"loop": true, "return": true, "where": true, "as": true, "dyn": true,
	"async": true, "await": true, "unsafe": true, "move": true, "ref": true,
	"bool": true, "char": true, "str": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true,
}

// stdlibRoots are always filtered out; they ship with the toolchain, not a
// registry, and are never dependency candidates.
var stdlibRoots = map[string]bool{
	"std": true, "core": true, "alloc": true, "proc_macro": true, "test": true,
}

// Result is the Inferrer's output: a draft dependency spec per crate name
// plus any diagnostics accumulated while walking (never fatal).
type Result struct {
	Drafts      map[string]*model.DependencySpec
	References  []model.CrateReference
	Diagnostics []string
}

// visitor accumulates state across one tree walk.
type visitor struct {
	src       []byte
	refs      []model.CrateReference
	renames   map[string]string // alias -> resolved crate name
	localMods map[string]bool   // names introduced by `mod foo;`
	diags     []string
}

// Infer walks the parsed AST once, collecting crate references, then
// reduces them to dependency drafts under the supplied inference level and
// policy. embeddedDeps are the names already pinned by the user's manifest
// fragment; those are authoritative and excluded from inference. selfName
// is the package the Synthesiser is building under - a `use`/path reference
// to it is the crate referring to itself, never an external dependency.
func Infer(h *synparse.Handle, cfg config.InferenceConfig, embeddedDeps map[string]bool, selfName string) Result {
	v := &visitor{
		src:       h.Source(),
		renames:   make(map[string]string),
		localMods: make(map[string]bool),
	}
	v.walk(h.Root())

	result := Result{Drafts: make(map[string]*model.DependencySpec)}
	result.References = v.refs
	result.Diagnostics = v.diags

	if cfg.Level == config.LevelNone {
		return result
	}

	for _, ref := range v.refs {
		name := ref.Name
		if resolved, ok := v.renames[name]; ok {
			name = resolved
		}

		if reservedKeywords[name] || stdlibRoots[name] || v.localMods[name] || embeddedDeps[name] || isSelfReference(name, selfName) {
			continue
		}

		draft, exists := result.Drafts[name]
		if !exists {
			draft = &model.DependencySpec{Name: name, DefaultFeatures: true, Source: model.SourceRegistry}
			result.Drafts[name] = draft
		}

		if cfg.Level == config.LevelMinimal {
			continue
		}

		applyPositionFeatures(draft, ref.Position)
		applyPerCrateOverride(draft, cfg.PerCrate[name])
	}

	logging.Infer("inferred %d candidate crate(s) from %d reference(s)", len(result.Drafts), len(v.refs))
	return result
}

// applyPositionFeatures encodes the small number of well-known position ->
// feature implications the spec calls out (e.g. derive-macro usage implies
// a crate's "derive" feature). This is deliberately conservative: it only
// fires for attribute positions, since that's the only position class the
// spec ties to a concrete feature inference.
func applyPositionFeatures(draft *model.DependencySpec, pos model.PositionClass) {
	if pos == model.PositionAttributePath {
		for _, f := range draft.Features {
			if f == "derive" {
				return
			}
		}
		draft.Features = append(draft.Features, "derive")
	}
}

func applyPerCrateOverride(draft *model.DependencySpec, override config.FeatureOverride) {
	draft.Features = unionStrings(draft.Features, override.RequiredFeatures)
	draft.Features = subtractStrings(draft.Features, override.ExcludedFeatures)
	if override.DefaultFeatures != nil {
		draft.DefaultFeatures = *override.DefaultFeatures
	}
}

// isSelfReference reports whether name is the crate being built referring
// to itself (`use my_tool::foo;` inside my_tool). Cargo package names and
// their Rust identifier form only ever differ by hyphen/underscore, so
// compare both normalized to underscores.
func isSelfReference(name, selfName string) bool {
	if selfName == "" {
		return false
	}
	return strings.ReplaceAll(name, "-", "_") == strings.ReplaceAll(selfName, "-", "_")
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
	sort.Strings(out)
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

// walk visits every node once, recording crate references at the AST
// locations named in the spec's candidate-collection table and tracking
// local module names and renames along the way.
func (v *visitor) walk(n *sitter.Node) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "mod_item":
		if name := n.ChildByFieldName("name"); name != nil {
			v.localMods[v.text(name)] = true
		}
	case "use_declaration":
		v.visitUseDeclaration(n)
	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil {
			v.collectPathHead(fn, model.PositionPathExpr)
		}
	case "macro_invocation":
		if macro := n.ChildByFieldName("macro"); macro != nil {
			v.collectPathHead(macro, model.PositionMacroInvocation)
		}
	case "attribute_item", "attribute":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			v.collectPathHead(n.NamedChild(i), model.PositionAttributePath)
		}
	case "scoped_type_identifier", "generic_type":
		v.collectPathHead(n, model.PositionTypePath)
	case "trait_bound":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			v.collectPathHead(n.NamedChild(i), model.PositionTraitBound)
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		v.walk(n.NamedChild(i))
	}
}

// visitUseDeclaration handles `use a::b;`, `use a::b as c;`, and use-list
// forms, recording a PositionUse or PositionUseRenamed reference per leaf.
func (v *visitor) visitUseDeclaration(n *sitter.Node) {
	arg := n.ChildByFieldName("argument")
	if arg == nil && n.NamedChildCount() > 0 {
		arg = n.NamedChild(0)
	}
	v.visitUseTree(arg)
}

func (v *visitor) visitUseTree(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "use_as_clause":
		path := n.ChildByFieldName("path")
		alias := n.ChildByFieldName("alias")
		if path == nil {
			path = n.NamedChild(0)
		}
		head := v.headSegment(path)
		if head != "" {
			line := int(n.StartPoint().Row) + 1
			ref := model.CrateReference{Name: head, Position: model.PositionUseRenamed, Line: line}
			if alias != nil {
				ref.Rename = v.text(alias)
				v.renames[ref.Rename] = head
			}
			v.refs = append(v.refs, ref)
		}
	case "use_list":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			v.visitUseTree(n.NamedChild(i))
		}
	case "scoped_use_list":
		prefix := n.ChildByFieldName("path")
		head := v.headSegment(prefix)
		if head != "" {
			line := int(n.StartPoint().Row) + 1
			v.refs = append(v.refs, model.CrateReference{Name: head, Position: model.PositionUse, Line: line})
		}
		list := n.ChildByFieldName("list")
		if list == nil {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if n.NamedChild(i).Type() == "use_list" {
					list = n.NamedChild(i)
				}
			}
		}
		v.visitUseTree(list)
	default:
		head := v.headSegment(n)
		if head != "" {
			v.refs = append(v.refs, model.CrateReference{Name: head, Position: model.PositionUse, Line: int(n.StartPoint().Row) + 1})
		}
	}
}

// collectPathHead records a reference for the head segment of whatever path
// expression/type lives at n, under the given position class.
func (v *visitor) collectPathHead(n *sitter.Node, pos model.PositionClass) {
	head := v.headSegment(n)
	if head == "" {
		return
	}
	v.refs = append(v.refs, model.CrateReference{Name: head, Position: pos, Line: int(n.StartPoint().Row) + 1})
}

// headSegment descends a scoped_identifier / scoped_type_identifier chain
// to its leftmost plain identifier, which is the crate-name candidate.
func (v *visitor) headSegment(n *sitter.Node) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "type_identifier":
			return v.text(n)
		case "scoped_identifier", "scoped_type_identifier":
			path := n.ChildByFieldName("path")
			if path == nil {
				return ""
			}
			n = path
		case "generic_type":
			inner := n.ChildByFieldName("type")
			if inner == nil {
				return ""
			}
			n = inner
		default:
			return ""
		}
	}
	return ""
}

func (v *visitor) text(n *sitter.Node) string {
	return string(v.src[n.StartByte():n.EndByte()])
}
