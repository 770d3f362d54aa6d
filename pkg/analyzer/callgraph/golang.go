package callgraph

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
)

func init() { register(goRules{}) }

// goRules analyzes Go sources. Module paths are directory paths relative to
// the scan root; vendored dependencies under vendor/ keep their real import
// path, which is what advisory symbols reference.
type goRules struct{}

func (goRules) Language() parser.Language { return parser.LangGo }

func (goRules) FunctionNode(t string) bool {
	return t == "function_declaration" || t == "method_declaration"
}

func (goRules) CallNode(t string) bool { return t == "call_expression" }

func (goRules) ImportNode(t string) bool { return t == "import_spec" }

func (goRules) Module(relPath string) string {
	dir := path.Dir(relPath)
	if stripped, ok := stripAfterMarker(dir, "vendor"); ok {
		return stripped
	}
	if dir == "." {
		return "main"
	}
	return dir
}

func (goRules) Function(n *sitter.Node, src []byte) (string, string, int, bool) {
	name := childText(n, "name", src)
	if name == "" {
		return "", "", 0, false
	}
	arity := countParams(n.ChildByFieldName("parameters"))

	recv := ""
	if recvList := n.ChildByFieldName("receiver"); recvList != nil {
		for i := range int(recvList.NamedChildCount()) {
			child := recvList.NamedChild(i)
			if child.Type() == "parameter_declaration" {
				recv = strings.TrimPrefix(childText(child, "type", src), "*")
				break
			}
		}
	}
	return name, recv, arity, true
}

func (goRules) Callee(n *sitter.Node, src []byte) (string, string, []string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", "", nil, false
	}
	args := identifierArgs(n.ChildByFieldName("arguments"), src)

	switch fn.Type() {
	case "identifier":
		return parser.GetNodeText(fn, src), "", args, true
	case "selector_expression":
		return childText(fn, "field", src), childText(fn, "operand", src), args, true
	case "parenthesized_expression", "index_expression", "call_expression":
		// Computed target; classified dynamic below but still a call site.
		return parser.GetNodeText(fn, src), "", args, true
	default:
		return "", "", nil, false
	}
}

func (goRules) Import(n *sitter.Node, src []byte) (string, string, bool) {
	p := strings.Trim(childText(n, "path", src), `"`)
	if p == "" {
		return "", "", false
	}
	alias := childText(n, "name", src)
	switch alias {
	case "", ".":
		alias = path.Base(p)
	case "_":
		return "", "", false
	}
	return alias, p, true
}

func (goRules) Entrypoint(fd *funcDecl, src []byte) (string, bool) {
	switch {
	case fd.name == "main" && fd.receiver == "":
		return "program start", true
	case fd.name == "init" && fd.receiver == "":
		return "package initializer", true
	case strings.HasSuffix(fd.path, "_test.go") &&
		(strings.HasPrefix(fd.name, "Test") || strings.HasPrefix(fd.name, "Benchmark") || strings.HasPrefix(fd.name, "Fuzz")):
		return "test function", true
	case fd.name == "ServeHTTP" && fd.receiver != "":
		return "http handler", true
	}
	return "", false
}

func (goRules) TopLevelEntry(string, []byte) (string, bool) {
	// Package-level initializers run at program start.
	return "package initialization", true
}

var goRegistrations = map[string]bool{
	"HandleFunc": true,
	"Handle":     true,
	"GET":        true,
	"POST":       true,
	"PUT":        true,
	"DELETE":     true,
	"PATCH":      true,
	"Any":        true,
	"Use":        true,
	"AfterFunc":  true,
}

func (goRules) RegistrationCall(name, _ string) bool {
	return goRegistrations[name]
}

func (goRules) DynamicCall(n *sitter.Node, name, qualifier string, _ []byte) (string, bool) {
	if fn := n.ChildByFieldName("function"); fn != nil {
		switch fn.Type() {
		case "parenthesized_expression", "index_expression", "call_expression":
			return "computed call target", true
		}
	}
	if strings.HasPrefix(qualifier, "reflect.") || qualifier == "reflect" {
		switch name {
		case "Call", "CallSlice", "MethodByName":
			return "reflection call", true
		}
	}
	if qualifier == "plugin" && name == "Lookup" {
		return "plugin symbol lookup", true
	}
	return "", false
}
