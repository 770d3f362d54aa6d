package callgraph

import (
	"path"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
	"github.com/depscope/depscope/pkg/symbol"
)

func init() { register(rubyRules{}) }

// rubyRules analyzes Ruby sources. There is no import binding to track:
// require loads files into one global namespace, so resolution leans on the
// name index and the per-module unknown sink.
type rubyRules struct{}

func (rubyRules) Language() parser.Language { return parser.LangRuby }

func (rubyRules) FunctionNode(t string) bool {
	return t == "method" || t == "singleton_method"
}

func (rubyRules) CallNode(t string) bool { return t == "call" }

func (rubyRules) ImportNode(string) bool { return false }

// gemDir matches gems/<name>-<version>/ in installed-gem paths.
var gemDir = regexp.MustCompile(`gems/([A-Za-z0-9_.-]+?)-\d[^/]*/`)

func (rubyRules) Module(relPath string) string {
	p := relPath
	if m := gemDir.FindStringSubmatchIndex(p); m != nil {
		gem := p[m[2]:m[3]]
		rest := p[m[1]:]
		if after, ok := stripAfterMarker(rest, "lib"); ok {
			rest = after
		}
		// A gem's lib/ tree is already namespaced under the gem name.
		if rest == gem+".rb" || strings.HasPrefix(rest, gem+"/") {
			p = rest
		} else {
			p = gem + "/" + rest
		}
	} else if after, ok := stripAfterMarker(p, "lib", "app"); ok {
		p = after
	}
	return dropExt(p)
}

func (rubyRules) Function(n *sitter.Node, src []byte) (string, string, int, bool) {
	name := childText(n, "name", src)
	if name == "" {
		return "", "", 0, false
	}
	params := n.ChildByFieldName("parameters")
	arity := countParams(params)
	if params != nil {
		for i := range int(params.NamedChildCount()) {
			switch params.NamedChild(i).Type() {
			case "splat_parameter", "hash_splat_parameter", "block_parameter":
				arity = symbol.ArityUnknown
			}
		}
	}
	recv := enclosingName(n, src, "class", "module")
	return name, recv, arity, true
}

func (rubyRules) Callee(n *sitter.Node, src []byte) (string, string, []string, bool) {
	method := n.ChildByFieldName("method")
	if method == nil {
		return "", "", nil, false
	}
	name := parser.GetNodeText(method, src)
	if name == "" {
		return "", "", nil, false
	}
	qualifier := childText(n, "receiver", src)
	args := identifierArgs(n.ChildByFieldName("arguments"), src)
	return name, qualifier, args, true
}

func (rubyRules) Import(*sitter.Node, []byte) (string, string, bool) {
	return "", "", false
}

func (rubyRules) Entrypoint(fd *funcDecl, _ []byte) (string, bool) {
	switch {
	case strings.HasPrefix(fd.name, "test_"):
		return "test function", true
	case strings.HasSuffix(fd.receiver, "Controller"):
		return "controller action", true
	case fd.name == "perform" &&
		(strings.HasSuffix(fd.receiver, "Job") || strings.HasSuffix(fd.receiver, "Worker")):
		return "background job", true
	}
	return "", false
}

func (rubyRules) TopLevelEntry(relPath string, _ []byte) (string, bool) {
	base := path.Base(relPath)
	switch {
	case strings.HasPrefix(relPath, "bin/") || strings.Contains(relPath, "/bin/"),
		strings.HasPrefix(relPath, "exe/") || strings.Contains(relPath, "/exe/"):
		return "script entry", true
	case base == "Rakefile" || strings.HasSuffix(base, ".rake"):
		return "rake task", true
	case base == "config.ru":
		return "rack entry", true
	}
	return "", false
}

var rubyRegistrations = map[string]bool{
	"before_action": true,
	"after_action":  true,
	"around_action": true,
	"validate":      true,
	"on":            true,
	"subscribe":     true,
	"draw":          true,
	"task":          true,
}

func (rubyRules) RegistrationCall(name, _ string) bool {
	return rubyRegistrations[name]
}

func (rubyRules) DynamicCall(_ *sitter.Node, name, _ string, _ []byte) (string, bool) {
	switch name {
	case "send", "public_send", "__send__":
		return "dynamic dispatch via send", true
	case "method", "instance_variable_get", "const_get":
		return "reflection lookup", true
	case "eval", "instance_eval", "class_eval", "module_eval":
		return "eval", true
	case "define_method":
		return "dynamic method definition", true
	}
	return "", false
}
