package inventory

import (
	"sort"
	"strings"
)

// Resolver maps a graph node's module path (and source file, for vendored
// trees) to the inventory package that owns it. Matching is prefix-based:
// module "lodash/merge" belongs to package "lodash", module
// "github.com/acme/lib/util" to "github.com/acme/lib".
type Resolver struct {
	// names sorted by descending length so the most specific prefix wins
	// (e.g. github.com/acme/lib/v2 before github.com/acme/lib).
	names []string
	set   map[string]Package
}

// NewResolver builds a resolver over the inventory.
func NewResolver(inv *Inventory) *Resolver {
	r := &Resolver{set: make(map[string]Package, len(inv.Packages))}
	for _, p := range inv.Packages {
		if _, dup := r.set[p.Name]; dup {
			continue
		}
		r.set[p.Name] = p
		r.names = append(r.names, p.Name)
	}
	sort.Slice(r.names, func(i, j int) bool {
		if len(r.names[i]) != len(r.names[j]) {
			return len(r.names[i]) > len(r.names[j])
		}
		return r.names[i] < r.names[j]
	})
	return r
}

// moduleSeparators are the per-language module path separators a prefix match
// must respect so that package "rack" never claims module "rackspace".
var moduleSeparators = []string{"/", ".", "::"}

// Origin returns the owning package name for a module path, or "" for
// first-party code. relPath, when known, resolves vendored files whose module
// path alone is ambiguous.
func (r *Resolver) Origin(relPath, module string) string {
	if module != "" {
		for _, name := range r.names {
			if moduleMatches(module, name) {
				return name
			}
		}
	}
	if relPath != "" {
		for _, name := range r.names {
			if pathContainsPackage(relPath, name) {
				return name
			}
		}
	}
	return ""
}

// Package returns the inventory entry for a resolved origin name.
func (r *Resolver) Package(name string) (Package, bool) {
	p, ok := r.set[name]
	return p, ok
}

func moduleMatches(module, pkg string) bool {
	if module == pkg {
		return true
	}
	if !strings.HasPrefix(module, pkg) {
		// Maven coordinates are group:artifact; the module path only carries
		// the group part.
		if group, _, found := strings.Cut(pkg, ":"); found {
			return module == group || strings.HasPrefix(module, group+".")
		}
		return false
	}
	rest := module[len(pkg):]
	for _, sep := range moduleSeparators {
		if strings.HasPrefix(rest, sep) {
			return true
		}
	}
	return false
}

// pathContainsPackage checks vendored directory layouts: vendor/<module
// path>/, node_modules/<name>/, site-packages/<name>/, gems/<name>-<ver>/.
func pathContainsPackage(relPath, pkg string) bool {
	if strings.Contains(relPath, "vendor/"+pkg+"/") ||
		strings.Contains(relPath, "node_modules/"+pkg+"/") {
		return true
	}
	base := pkg
	if _, artifact, found := strings.Cut(pkg, ":"); found {
		base = artifact
	}
	if strings.Contains(relPath, "site-packages/"+base+"/") ||
		strings.Contains(relPath, "site-packages/"+base+".py") ||
		strings.Contains(relPath, "gems/"+base+"-") {
		return true
	}
	return false
}
