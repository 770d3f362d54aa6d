package callgraph

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
)

// fileExtraction is the per-file output of the single-pass AST walk:
// declarations, call sites attributed to their enclosing declaration, and the
// file's import bindings. Linking across files happens later, single-threaded.
type fileExtraction struct {
	path    string // relative to the scan root
	module  string
	defs    []funcDecl
	calls   []callSite
	imports map[string]string // alias -> module path
	// topEntry is the entrypoint reason for module-level code, or empty.
	topEntry string
	// hasTopLevelCalls records whether any call occurs outside a named
	// declaration; only then does the file contribute a top-level node.
	hasTopLevelCalls bool
}

// extractFile runs one recursive pass over the AST collecting everything the
// linker needs. Anonymous functions are not declarations: calls inside them
// attribute to the nearest enclosing named declaration, which matches how the
// closure becomes live.
func extractFile(r langRules, res *parser.ParseResult, relPath string) *fileExtraction {
	src := res.Source
	ext := &fileExtraction{
		path:    relPath,
		module:  r.Module(relPath),
		imports: make(map[string]string),
	}
	if reason, ok := r.TopLevelEntry(relPath, src); ok {
		ext.topEntry = reason
	}

	var walk func(n *sitter.Node, cur int)
	walk = func(n *sitter.Node, cur int) {
		nodeType := n.Type()

		if r.FunctionNode(nodeType) {
			if name, recv, arity, ok := r.Function(n, src); ok {
				fd := funcDecl{
					name:     name,
					receiver: recv,
					arity:    arity,
					line:     n.StartPoint().Row + 1,
					node:     n,
					module:   ext.module,
					path:     relPath,
				}
				if reason, isEntry := r.Entrypoint(&fd, src); isEntry {
					fd.entryReason = reason
				}
				idx := len(ext.defs)
				ext.defs = append(ext.defs, fd)
				for i := range int(n.ChildCount()) {
					walk(n.Child(i), idx)
				}
				return
			}
		}

		if r.ImportNode(nodeType) {
			if alias, module, ok := r.Import(n, src); ok && alias != "" {
				ext.imports[alias] = module
			}
		}

		if r.CallNode(nodeType) {
			if name, qualifier, args, ok := r.Callee(n, src); ok {
				cs := callSite{
					callerIdx: cur,
					callee:    name,
					qualifier: qualifier,
					args:      args,
					line:      n.StartPoint().Row + 1,
				}
				if reason, dyn := r.DynamicCall(n, name, qualifier, src); dyn {
					cs.dynamic = reason
				}
				if cur < 0 {
					ext.hasTopLevelCalls = true
				}
				ext.calls = append(ext.calls, cs)
			}
		}

		for i := range int(n.ChildCount()) {
			walk(n.Child(i), cur)
		}
	}
	walk(res.Tree.RootNode(), -1)

	// The AST is not needed past this point; drop node references so trees
	// can be collected while other files are still parsing.
	for i := range ext.defs {
		ext.defs[i].node = nil
	}
	return ext
}

// childText returns the text of the child at the given field name, or "".
func childText(n *sitter.Node, field string, src []byte) string {
	return parser.GetNodeText(n.ChildByFieldName(field), src)
}

// countParams counts named parameters in a parameter-list node, skipping
// punctuation. Returns ArityUnknown semantics at the caller's discretion.
func countParams(params *sitter.Node) int {
	if params == nil {
		return 0
	}
	count := 0
	for i := range int(params.NamedChildCount()) {
		switch params.NamedChild(i).Type() {
		case "comment", "line_comment", "block_comment":
		default:
			count++
		}
	}
	return count
}

// identifierArgs collects bare identifier arguments from a call's argument
// list. Used to promote registered handlers to entrypoints.
func identifierArgs(args *sitter.Node, src []byte) []string {
	if args == nil {
		return nil
	}
	var out []string
	for i := range int(args.NamedChildCount()) {
		child := args.NamedChild(i)
		switch child.Type() {
		case "identifier", "constant":
			out = append(out, parser.GetNodeText(child, src))
		case "simple_symbol":
			// Ruby: before_action :authenticate names the handler as a symbol.
			out = append(out, strings.TrimPrefix(parser.GetNodeText(child, src), ":"))
		case "keyword_argument":
			// Python: Thread(target=handler).
			if v := child.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
				out = append(out, parser.GetNodeText(v, src))
			}
		case "selector_expression", "attribute", "member_expression",
			"field_expression", "scoped_identifier", "field_access",
			"method_reference":
			// Qualified references still name a function; keep the last
			// component so it can match a declaration by name.
			txt := parser.GetNodeText(child, src)
			if idx := lastSeparator(txt); idx >= 0 && idx+1 < len(txt) {
				out = append(out, txt[idx+1:])
			}
		}
	}
	return out
}

func lastSeparator(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' || s[i] == ':' {
			return i
		}
	}
	return -1
}
