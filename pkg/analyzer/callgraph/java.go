package callgraph

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
)

func init() { register(javaRules{}) }

// javaRules analyzes Java sources. Module paths are dotted package paths
// derived from the directory layout with the Maven/Gradle source roots
// stripped.
type javaRules struct{}

func (javaRules) Language() parser.Language { return parser.LangJava }

func (javaRules) FunctionNode(t string) bool {
	return t == "method_declaration" || t == "constructor_declaration"
}

func (javaRules) CallNode(t string) bool {
	return t == "method_invocation" || t == "object_creation_expression"
}

func (javaRules) ImportNode(t string) bool { return t == "import_declaration" }

func (javaRules) Module(relPath string) string {
	dir := path.Dir(relPath)
	if stripped, ok := stripAfterMarker(dir, "java", "src"); ok {
		dir = stripped
	}
	if dir == "." {
		return "default"
	}
	return strings.ReplaceAll(dir, "/", ".")
}

func (javaRules) Function(n *sitter.Node, src []byte) (string, string, int, bool) {
	name := childText(n, "name", src)
	if name == "" {
		return "", "", 0, false
	}
	arity := countParams(n.ChildByFieldName("parameters"))
	recv := enclosingName(n, src, "class_declaration", "interface_declaration", "enum_declaration")
	return name, recv, arity, true
}

func (javaRules) Callee(n *sitter.Node, src []byte) (string, string, []string, bool) {
	args := identifierArgs(n.ChildByFieldName("arguments"), src)

	if n.Type() == "object_creation_expression" {
		// new Foo() invokes the constructor, which declares under the class
		// name.
		typ := childText(n, "type", src)
		if idx := strings.LastIndexByte(typ, '.'); idx >= 0 {
			typ = typ[idx+1:]
		}
		if idx := strings.IndexByte(typ, '<'); idx >= 0 {
			typ = typ[:idx]
		}
		if typ == "" {
			return "", "", nil, false
		}
		return typ, "", args, true
	}

	name := childText(n, "name", src)
	if name == "" {
		return "", "", nil, false
	}
	return name, childText(n, "object", src), args, true
}

func (javaRules) Import(n *sitter.Node, src []byte) (string, string, bool) {
	text := parser.GetNodeText(n, src)
	text = strings.TrimPrefix(text, "import")
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	// Static imports bind a member name the same way class imports bind a
	// class name.
	text = strings.TrimPrefix(text, "static ")
	if text == "" || strings.HasSuffix(text, ".*") {
		return "", "", false
	}
	idx := strings.LastIndexByte(text, '.')
	if idx < 0 {
		return "", "", false
	}
	return text[idx+1:], text[:idx], true
}

var javaEntryAnnotations = map[string]string{
	"Test":              "test function",
	"ParameterizedTest": "test function",
	"BeforeEach":        "test fixture",
	"AfterEach":         "test fixture",
	"GetMapping":        "http handler",
	"PostMapping":       "http handler",
	"PutMapping":        "http handler",
	"DeleteMapping":     "http handler",
	"PatchMapping":      "http handler",
	"RequestMapping":    "http handler",
	"Scheduled":         "scheduled task",
	"EventListener":     "event handler",
	"KafkaListener":     "message consumer",
	"RabbitListener":    "message consumer",
	"PostConstruct":     "lifecycle hook",
}

func (javaRules) Entrypoint(fd *funcDecl, src []byte) (string, bool) {
	if fd.name == "main" {
		return "program start", true
	}
	switch fd.name {
	case "doGet", "doPost", "doPut", "doDelete", "service":
		if strings.HasSuffix(fd.receiver, "Servlet") {
			return "servlet handler", true
		}
	}
	if mods := firstChildOfType(fd.node, "modifiers"); mods != nil {
		for i := range int(mods.NamedChildCount()) {
			child := mods.NamedChild(i)
			if child.Type() != "marker_annotation" && child.Type() != "annotation" {
				continue
			}
			name := strings.TrimPrefix(childText(child, "name", src), "@")
			if reason, ok := javaEntryAnnotations[name]; ok {
				return reason, true
			}
		}
	}
	return "", false
}

func firstChildOfType(n *sitter.Node, t string) *sitter.Node {
	for i := range int(n.NamedChildCount()) {
		if child := n.NamedChild(i); child.Type() == t {
			return child
		}
	}
	return nil
}

func (javaRules) TopLevelEntry(string, []byte) (string, bool) {
	return "", false
}

var javaRegistrations = map[string]bool{
	"addActionListener":   true,
	"addListener":         true,
	"submit":              true,
	"execute":             true,
	"schedule":            true,
	"scheduleAtFixedRate": true,
	"invokeLater":         true,
}

func (javaRules) RegistrationCall(name, _ string) bool {
	return javaRegistrations[name]
}

func (javaRules) DynamicCall(_ *sitter.Node, name, qualifier string, _ []byte) (string, bool) {
	switch name {
	case "invoke", "invokeExact", "invokeWithArguments":
		return "reflective invocation", true
	case "forName":
		if qualifier == "Class" {
			return "dynamic class load", true
		}
	case "newInstance":
		return "reflective construction", true
	}
	return "", false
}
