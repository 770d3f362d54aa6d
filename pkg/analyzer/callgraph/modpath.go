package callgraph

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depscope/depscope/pkg/parser"
)

// stripAfterMarker returns the portion of p following the last occurrence of
// any marker directory. Vendored trees (vendor/, node_modules/,
// site-packages/) place dependency sources under a marker whose suffix is the
// package-visible module path.
func stripAfterMarker(p string, markers ...string) (string, bool) {
	best := -1
	for _, m := range markers {
		needle := m + "/"
		if idx := strings.LastIndex(p, needle); idx >= 0 {
			if after := idx + len(needle); after > best {
				best = after
			}
		}
	}
	if best < 0 {
		return p, false
	}
	return p[best:], true
}

// dropExt removes the file extension from the last path segment.
func dropExt(p string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext)
}

// enclosingName climbs the AST to the nearest ancestor of one of the given
// types and returns its name field text. Used to attribute methods to their
// class, impl block, or module.
func enclosingName(n *sitter.Node, src []byte, types ...string) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, t := range types {
			if p.Type() == t {
				if name := p.ChildByFieldName("name"); name != nil {
					return parser.GetNodeText(name, src)
				}
				if typ := p.ChildByFieldName("type"); typ != nil {
					return strings.TrimPrefix(parser.GetNodeText(typ, src), "*")
				}
				return ""
			}
		}
	}
	return ""
}

// precedingSiblings collects the text of named siblings of the given types
// immediately preceding a node. Rust attributes and similar markers sit as
// siblings before the item they annotate.
func precedingSiblings(n *sitter.Node, src []byte, types ...string) []string {
	var out []string
	for p := n.PrevNamedSibling(); p != nil; p = p.PrevNamedSibling() {
		matched := false
		for _, t := range types {
			if p.Type() == t {
				out = append(out, parser.GetNodeText(p, src))
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}
	return out
}

// containsAnyPrefix reports whether s, after trimming the given leaders,
// starts with any of the prefixes.
func containsAnyPrefix(s string, leaders string, prefixes ...string) bool {
	s = strings.TrimLeft(s, leaders)
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
