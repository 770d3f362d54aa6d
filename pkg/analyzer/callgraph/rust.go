package callgraph

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
)

func init() { register(rustRules{}) }

// rustRules analyzes Rust sources. Module paths use :: separators; vendored
// crates under vendor/<crate>/src/ keep their crate-qualified path, matching
// how RustSec advisories name symbols.
type rustRules struct{}

func (rustRules) Language() parser.Language { return parser.LangRust }

func (rustRules) FunctionNode(t string) bool { return t == "function_item" }

func (rustRules) CallNode(t string) bool { return t == "call_expression" }

func (rustRules) ImportNode(t string) bool { return t == "use_declaration" }

func (rustRules) Module(relPath string) string {
	p := relPath
	crate := ""
	if stripped, ok := stripAfterMarker(p, "vendor"); ok {
		// vendor/<crate>/src/x.rs -> <crate>::x
		var rest string
		var found bool
		crate, rest, found = strings.Cut(stripped, "/")
		if !found {
			return crate
		}
		if after, ok := stripAfterMarker(rest, "src"); ok {
			rest = after
		}
		p = crate + "/" + rest
	} else if after, ok := stripAfterMarker(p, "src"); ok {
		p = after
	}

	p = dropExt(p)
	switch path.Base(p) {
	case "mod", "lib", "main":
		p = path.Dir(p)
	}
	if p == "." || p == "" {
		if crate != "" {
			return crate
		}
		return "crate"
	}
	mod := strings.ReplaceAll(p, "/", "::")
	if crate != "" {
		return mod
	}
	// First-party modules root at the crate itself.
	return "crate::" + mod
}

func (rustRules) Function(n *sitter.Node, src []byte) (string, string, int, bool) {
	name := childText(n, "name", src)
	if name == "" {
		return "", "", 0, false
	}
	arity := 0
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := range int(params.NamedChildCount()) {
			if params.NamedChild(i).Type() != "self_parameter" {
				arity++
			}
		}
	}
	recv := enclosingName(n, src, "impl_item", "trait_item")
	return name, recv, arity, true
}

func (rustRules) Callee(n *sitter.Node, src []byte) (string, string, []string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", "", nil, false
	}
	args := identifierArgs(n.ChildByFieldName("arguments"), src)

	switch fn.Type() {
	case "identifier":
		return parser.GetNodeText(fn, src), "", args, true
	case "scoped_identifier":
		return childText(fn, "name", src), childText(fn, "path", src), args, true
	case "field_expression":
		return childText(fn, "field", src), childText(fn, "value", src), args, true
	case "generic_function":
		inner := fn.ChildByFieldName("function")
		if inner == nil {
			return "", "", nil, false
		}
		if inner.Type() == "scoped_identifier" {
			return childText(inner, "name", src), childText(inner, "path", src), args, true
		}
		return parser.GetNodeText(inner, src), "", args, true
	case "index_expression", "parenthesized_expression", "call_expression":
		return parser.GetNodeText(fn, src), "", args, true
	default:
		return "", "", nil, false
	}
}

func (rustRules) Import(n *sitter.Node, src []byte) (string, string, bool) {
	arg := n.NamedChild(0)
	if arg == nil {
		return "", "", false
	}
	switch arg.Type() {
	case "use_as_clause":
		full := childText(arg, "path", src)
		alias := childText(arg, "alias", src)
		if idx := strings.LastIndex(full, "::"); idx >= 0 {
			return alias, full[:idx], true
		}
		return alias, full, true
	case "scoped_identifier":
		full := parser.GetNodeText(arg, src)
		if idx := strings.LastIndex(full, "::"); idx >= 0 {
			return full[idx+2:], full[:idx], true
		}
		return full, full, true
	case "identifier":
		name := parser.GetNodeText(arg, src)
		return name, name, true
	}
	// use_wildcard and use_list bindings are not tracked.
	return "", "", false
}

func (rustRules) Entrypoint(fd *funcDecl, src []byte) (string, bool) {
	attrs := precedingSiblings(fd.node, src, "attribute_item")
	for _, a := range attrs {
		switch {
		case strings.Contains(a, "test") || strings.Contains(a, "bench"):
			return "test function", true
		case strings.Contains(a, "tokio::main") || strings.Contains(a, "async_std::main"):
			return "async runtime entry", true
		case strings.Contains(a, "get(") || strings.Contains(a, "post(") ||
			strings.Contains(a, "put(") || strings.Contains(a, "delete(") ||
			strings.Contains(a, "route("):
			return "http handler", true
		case strings.Contains(a, "no_mangle") || strings.Contains(a, "export_name"):
			return "exported symbol", true
		}
	}
	if fd.name == "main" && fd.receiver == "" {
		return "program start", true
	}
	return "", false
}

func (rustRules) TopLevelEntry(string, []byte) (string, bool) {
	return "", false
}

var rustRegistrations = map[string]bool{
	"route":          true,
	"service":        true,
	"spawn":          true,
	"spawn_blocking": true,
	"block_on":       true,
}

func (rustRules) RegistrationCall(name, _ string) bool {
	return rustRegistrations[name]
}

func (rustRules) DynamicCall(n *sitter.Node, _, _ string, _ []byte) (string, bool) {
	if fn := n.ChildByFieldName("function"); fn != nil {
		switch fn.Type() {
		case "index_expression", "parenthesized_expression", "call_expression":
			return "function pointer call", true
		}
	}
	return "", false
}
