package callgraph

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
)

func init() { register(jsRules{}) }

// jsLike holds the rules shared by JavaScript and TypeScript; the grammars
// use the same node types for declarations, calls, and imports.
type jsLike struct{}

func (jsLike) FunctionNode(t string) bool {
	switch t {
	case "function_declaration", "generator_function_declaration", "method_definition",
		"variable_declarator":
		return true
	}
	return false
}

func (jsLike) CallNode(t string) bool {
	return t == "call_expression" || t == "new_expression"
}

// Imports bind on import_specifier / namespace_import children plus
// require()-style variable declarators.
func (jsLike) ImportNode(t string) bool {
	switch t {
	case "import_specifier", "namespace_import", "import_clause", "variable_declarator":
		return true
	}
	return false
}

func (jsLike) Module(relPath string) string {
	p, _ := stripAfterMarker(relPath, "node_modules")
	return dropExt(p)
}

func (jsLike) Function(n *sitter.Node, src []byte) (string, string, int, bool) {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		name := childText(n, "name", src)
		if name == "" {
			return "", "", 0, false
		}
		return name, "", countParams(n.ChildByFieldName("parameters")), true

	case "method_definition":
		name := childText(n, "name", src)
		if name == "" || name == "constructor" {
			if name == "constructor" {
				name = enclosingName(n, src, "class_declaration", "class")
			}
			if name == "" {
				return "", "", 0, false
			}
		}
		recv := enclosingName(n, src, "class_declaration", "class")
		return name, recv, countParams(n.ChildByFieldName("parameters")), true

	case "variable_declarator":
		// const handler = (req, res) => { ... }
		value := n.ChildByFieldName("value")
		if value == nil {
			return "", "", 0, false
		}
		switch value.Type() {
		case "arrow_function", "function_expression", "function", "generator_function":
		default:
			return "", "", 0, false
		}
		name := childText(n, "name", src)
		if name == "" {
			return "", "", 0, false
		}
		params := value.ChildByFieldName("parameters")
		arity := countParams(params)
		if params == nil && value.ChildByFieldName("parameter") != nil {
			arity = 1 // single-parameter arrow without parentheses
		}
		return name, "", arity, true
	}
	return "", "", 0, false
}

func (jsLike) Callee(n *sitter.Node, src []byte) (string, string, []string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		fn = n.ChildByFieldName("constructor")
	}
	if fn == nil {
		return "", "", nil, false
	}
	args := identifierArgs(n.ChildByFieldName("arguments"), src)

	switch fn.Type() {
	case "identifier":
		return parser.GetNodeText(fn, src), "", args, true
	case "member_expression":
		return childText(fn, "property", src), childText(fn, "object", src), args, true
	case "subscript_expression", "call_expression", "parenthesized_expression", "import":
		return parser.GetNodeText(fn, src), "", args, true
	default:
		return "", "", nil, false
	}
}

func (jsLike) Import(n *sitter.Node, src []byte) (string, string, bool) {
	switch n.Type() {
	case "import_specifier":
		alias := childText(n, "alias", src)
		if alias == "" {
			alias = childText(n, "name", src)
		}
		return alias, importSource(n, src), alias != ""

	case "namespace_import":
		// import * as x from 'mod'
		for i := range int(n.NamedChildCount()) {
			if child := n.NamedChild(i); child.Type() == "identifier" {
				return parser.GetNodeText(child, src), importSource(n, src), true
			}
		}

	case "import_clause":
		// Default import: the bare identifier child.
		for i := range int(n.NamedChildCount()) {
			if child := n.NamedChild(i); child.Type() == "identifier" {
				return parser.GetNodeText(child, src), importSource(n, src), true
			}
		}

	case "variable_declarator":
		// const x = require('mod')
		value := n.ChildByFieldName("value")
		if value == nil || value.Type() != "call_expression" {
			return "", "", false
		}
		fn := value.ChildByFieldName("function")
		if fn == nil || parser.GetNodeText(fn, src) != "require" {
			return "", "", false
		}
		argList := value.ChildByFieldName("arguments")
		if argList == nil || argList.NamedChildCount() == 0 {
			return "", "", false
		}
		arg := argList.NamedChild(0)
		if arg.Type() != "string" {
			return "", "", false
		}
		mod := strings.Trim(parser.GetNodeText(arg, src), `'"`)
		return childText(n, "name", src), mod, mod != ""
	}
	return "", "", false
}

// importSource climbs to the enclosing import_statement and reads its module
// string.
func importSource(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "import_statement" {
			return strings.Trim(childText(p, "source", src), `'"`)
		}
	}
	return ""
}

func (jsLike) Entrypoint(*funcDecl, []byte) (string, bool) {
	return "", false
}

func (jsLike) TopLevelEntry(relPath string, _ []byte) (string, bool) {
	base := dropExt(path.Base(relPath))
	switch base {
	case "index", "main", "server", "app", "cli":
		return "module entry", true
	}
	if strings.Contains(relPath, "bin/") || strings.Contains(relPath, "scripts/") {
		return "script entry", true
	}
	return "", false
}

var jsRegistrations = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true,
	"all": true, "use": true, "listen": true,
	"on": true, "once": true, "addEventListener": true,
	"describe": true, "it": true, "test": true,
	"before": true, "after": true, "beforeEach": true, "afterEach": true,
	"setTimeout": true, "setInterval": true, "setImmediate": true,
	"nextTick": true,
}

func (jsLike) RegistrationCall(name, _ string) bool {
	return jsRegistrations[name]
}

func (jsLike) DynamicCall(n *sitter.Node, name, qualifier string, _ []byte) (string, bool) {
	if fn := n.ChildByFieldName("function"); fn != nil {
		switch fn.Type() {
		case "subscript_expression", "call_expression", "parenthesized_expression":
			return "computed call target", true
		case "import":
			return "dynamic import", true
		}
	}
	switch {
	case name == "eval" || (n.Type() == "new_expression" && name == "Function"):
		return "eval", true
	case qualifier == "Reflect" && (name == "apply" || name == "construct"):
		return "reflection call", true
	}
	return "", false
}

// jsRules analyzes JavaScript sources.
type jsRules struct{ jsLike }

func (jsRules) Language() parser.Language { return parser.LangJavaScript }
