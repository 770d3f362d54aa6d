package callgraph

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
	"github.com/depscope/depscope/pkg/symbol"
)

func init() { register(pyRules{}) }

// pyRules analyzes Python sources. Module paths are dotted import paths;
// installed dependencies under site-packages keep their import path.
type pyRules struct{}

func (pyRules) Language() parser.Language { return parser.LangPython }

func (pyRules) FunctionNode(t string) bool { return t == "function_definition" }

func (pyRules) CallNode(t string) bool { return t == "call" }

// Import bindings live on the dotted_name and aliased_import children so
// that multi-name statements ("import a, b", "from m import f, g") each
// contribute a binding.
func (pyRules) ImportNode(t string) bool {
	return t == "dotted_name" || t == "aliased_import"
}

func (pyRules) Module(relPath string) string {
	p, _ := stripAfterMarker(relPath, "site-packages", "dist-packages", "src")
	p = dropExt(p)
	p = strings.TrimSuffix(p, "/__init__")
	return strings.ReplaceAll(p, "/", ".")
}

func (pyRules) Function(n *sitter.Node, src []byte) (string, string, int, bool) {
	name := childText(n, "name", src)
	if name == "" {
		return "", "", 0, false
	}
	params := n.ChildByFieldName("parameters")
	arity := countParams(params)
	if hasSplatParams(params) {
		arity = symbol.ArityUnknown
	}
	recv := enclosingName(n, src, "class_definition")
	return name, recv, arity, true
}

func hasSplatParams(params *sitter.Node) bool {
	if params == nil {
		return false
	}
	for i := range int(params.NamedChildCount()) {
		switch params.NamedChild(i).Type() {
		case "list_splat_pattern", "dictionary_splat_pattern":
			return true
		}
	}
	return false
}

func (pyRules) Callee(n *sitter.Node, src []byte) (string, string, []string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", "", nil, false
	}
	args := identifierArgs(n.ChildByFieldName("arguments"), src)

	switch fn.Type() {
	case "identifier":
		return parser.GetNodeText(fn, src), "", args, true
	case "attribute":
		return childText(fn, "attribute", src), childText(fn, "object", src), args, true
	case "subscript", "call":
		return parser.GetNodeText(fn, src), "", args, true
	default:
		return "", "", nil, false
	}
}

func (pyRules) Import(n *sitter.Node, src []byte) (string, string, bool) {
	parent := n.Parent()
	if parent == nil {
		return "", "", false
	}

	switch n.Type() {
	case "aliased_import":
		name := childText(n, "name", src)
		alias := childText(n, "alias", src)
		if name == "" || alias == "" {
			return "", "", false
		}
		if parent.Type() == "import_from_statement" {
			base := childText(parent, "module_name", src)
			return alias, base + "." + name, true
		}
		return alias, name, true

	case "dotted_name":
		text := parser.GetNodeText(n, src)
		switch parent.Type() {
		case "import_statement":
			// "import a.b" binds the full dotted path.
			return text, text, true
		case "import_from_statement":
			base := childText(parent, "module_name", src)
			if parser.GetNodeText(parent.ChildByFieldName("module_name"), src) == text {
				return "", "", false // the module part, not an imported name
			}
			return text, base + "." + text, true
		}
	}
	return "", "", false
}

var pyDecoratorEntries = []string{
	"app.", "router.", "api.", "blueprint.", "bp.",
	"route", "task", "shared_task", "celery",
	"click.", "cli.", "pytest.fixture",
}

func (pyRules) Entrypoint(fd *funcDecl, src []byte) (string, bool) {
	if strings.HasPrefix(fd.name, "test_") || (strings.HasPrefix(fd.name, "Test") && fd.receiver == "") {
		return "test function", true
	}
	// Decorated functions sit under a decorated_definition node.
	if parent := fd.node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		for i := range int(parent.NamedChildCount()) {
			child := parent.NamedChild(i)
			if child.Type() != "decorator" {
				continue
			}
			text := parser.GetNodeText(child, src)
			if containsAnyPrefix(text, "@", pyDecoratorEntries...) {
				return "framework handler", true
			}
		}
	}
	return "", false
}

func (pyRules) TopLevelEntry(relPath string, src []byte) (string, bool) {
	switch path.Base(relPath) {
	case "__main__.py", "manage.py", "setup.py":
		return "script entry", true
	case "conftest.py":
		return "test configuration", true
	}
	text := string(src)
	if strings.Contains(text, "__name__") &&
		(strings.Contains(text, `"__main__"`) || strings.Contains(text, `'__main__'`)) {
		return "script entry", true
	}
	return "", false
}

var pyRegistrations = map[string]bool{
	"add_url_rule":       true,
	"register":           true,
	"connect":            true,
	"add_signal_handler": true,
	"call_later":         true,
	"call_soon":          true,
	"Thread":             true,
	"Timer":              true,
	"Process":            true,
	"submit":             true,
	"apply_async":        true,
}

func (pyRules) RegistrationCall(name, _ string) bool {
	return pyRegistrations[name]
}

func (pyRules) DynamicCall(n *sitter.Node, name, _ string, _ []byte) (string, bool) {
	if fn := n.ChildByFieldName("function"); fn != nil {
		switch fn.Type() {
		case "subscript", "call":
			return "computed call target", true
		}
	}
	switch name {
	case "eval", "exec":
		return "eval", true
	case "getattr", "setattr":
		return "reflection via getattr", true
	case "__import__", "import_module":
		return "dynamic import", true
	case "globals", "locals", "vars":
		return "namespace reflection", true
	}
	return "", false
}
