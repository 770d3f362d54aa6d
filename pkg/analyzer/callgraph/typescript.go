package callgraph

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
)

func init() { register(tsRules{}) }

// tsRules analyzes TypeScript (and TSX/JSX, which the parser folds onto this
// adapter). It extends the shared JS rules with decorator-based entrypoint
// detection for Nest/Angular-style controllers.
type tsRules struct{ jsLike }

func (tsRules) Language() parser.Language { return parser.LangTypeScript }

var tsEntryDecorators = map[string]string{
	"Get":     "http handler",
	"Post":    "http handler",
	"Put":     "http handler",
	"Delete":  "http handler",
	"Patch":   "http handler",
	"All":     "http handler",
	"Cron":    "scheduled task",
	"On":      "event handler",
	"Process": "queue processor",
}

func (tsRules) Entrypoint(fd *funcDecl, src []byte) (string, bool) {
	for _, text := range methodDecorators(fd.node, src) {
		name := text
		if idx := strings.IndexByte(name, '('); idx >= 0 {
			name = name[:idx]
		}
		name = strings.TrimPrefix(name, "@")
		if reason, ok := tsEntryDecorators[name]; ok {
			return reason, true
		}
	}
	return "", false
}

// methodDecorators collects decorator texts attached to a method or function,
// checking both child decorators and preceding siblings depending on where
// the grammar placed them.
func methodDecorators(n *sitter.Node, src []byte) []string {
	var out []string
	for i := range int(n.NamedChildCount()) {
		if child := n.NamedChild(i); child.Type() == "decorator" {
			out = append(out, parser.GetNodeText(child, src))
		}
	}
	out = append(out, precedingSiblings(n, src, "decorator")...)
	return out
}
