// Package callgraph builds per-language call-graph fragments from parsed
// source trees. Each language contributes an Adapter wrapping a rule table;
// extraction over files runs in parallel, linking runs single-threaded per
// adapter, and the resulting fragments merge downstream into one graph.
package callgraph

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/depscope/depscope/internal/fileproc"
	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/parser"
	"github.com/depscope/depscope/pkg/symbol"
)

// OriginFunc maps a source file (relative path) and its module path to the
// inventory package that owns it, or "" for first-party code.
type OriginFunc func(relPath, module string) string

// maxDispatchTargets bounds fan-out when a method name matches many
// declarations. Past the bound the call is routed through the module's
// unknown sink instead of emitting one edge per candidate.
const maxDispatchTargets = 8

// Adapter analyzes one language's files into a graph fragment.
type Adapter struct {
	rules  langRules
	origin OriginFunc
}

// ForLanguage returns the adapter for a language, or false when the language
// has no rule table.
func ForLanguage(lang parser.Language, origin OriginFunc) (*Adapter, bool) {
	r, ok := ruleTables[parser.AnalyzerLanguage(lang)]
	if !ok {
		return nil, false
	}
	return &Adapter{rules: r, origin: origin}, true
}

// ruleTables is populated by the per-language files' init functions.
var ruleTables = map[parser.Language]langRules{}

func register(r langRules) {
	ruleTables[r.Language()] = r
}

// Language returns the language this adapter analyzes.
func (a *Adapter) Language() parser.Language {
	return a.rules.Language()
}

// Analyze parses and extracts files in parallel, then links declarations and
// call sites into a Fragment. Per-file failures are recorded on the fragment;
// only context cancellation (the per-adapter timeout) aborts the whole
// language.
func (a *Adapter) Analyze(ctx context.Context, root string, files []string, onProgress fileproc.ProgressFunc) (*graph.Fragment, error) {
	lang := a.rules.Language()

	results, errs := fileproc.MapFilesWithProgress(ctx, files, func(p *parser.Parser, path string) (*fileExtraction, error) {
		res, err := p.ParseFile(path)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		return extractFile(a.rules, res, filepath.ToSlash(rel)), nil
	}, onProgress)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s analysis aborted: %w", lang, err)
	}

	frag := a.link(results)
	frag.FilesParsed = len(results)
	if errs != nil {
		for _, fe := range errs.All() {
			frag.Failures = append(frag.Failures, graph.ParseFailure{Path: fe.Path, Reason: fe.Err.Error()})
		}
	}
	return frag, nil
}

// defRef locates a declaration during linking.
type defRef struct {
	sym     symbol.Symbol
	nodeIdx int // index into the fragment's node list
	module  string
}

// linker resolves call sites against the declaration index and emits nodes
// and edges. It runs single-threaded after the parallel extraction phase, so
// its maps need no locking.
type linker struct {
	rules  langRules
	origin OriginFunc
	lang   string

	frag      *graph.Fragment
	byName    map[string][]*defRef
	byModName map[string]*defRef
	topLevels map[string]int // module -> top-level node index
	sinks     map[string]symbol.Symbol
	externals map[string]bool
}

func (a *Adapter) link(files []*fileExtraction) *graph.Fragment {
	// Deterministic output requires a fixed file order; extraction results
	// arrive in completion order.
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })

	l := &linker{
		rules:     a.rules,
		origin:    a.origin,
		lang:      string(a.rules.Language()),
		frag:      &graph.Fragment{Language: string(a.rules.Language())},
		byName:    make(map[string][]*defRef),
		byModName: make(map[string]*defRef),
		topLevels: make(map[string]int),
		sinks:     make(map[string]symbol.Symbol),
		externals: make(map[string]bool),
	}

	// Pass 1: index every declaration and emit its node.
	for _, f := range files {
		for i := range f.defs {
			l.addDef(f, &f.defs[i])
		}
		// A top-level node only exists when module-level code actually calls
		// something; an empty one would just inflate the entrypoint set.
		if f.hasTopLevelCalls {
			l.addTopLevel(f)
		}
	}

	// Pass 2: promote handler-registration arguments to entrypoints. This
	// must precede nothing in particular but runs before edges purely so the
	// reasons land on nodes the edge pass will reference.
	for _, f := range files {
		for i := range f.calls {
			c := &f.calls[i]
			if l.rules.RegistrationCall(c.callee, c.qualifier) {
				l.promoteHandlers(f, c)
			}
		}
	}

	// Pass 3: resolve call sites into edges.
	for _, f := range files {
		for i := range f.calls {
			l.resolve(f, &f.calls[i])
		}
	}

	// Dynamic code in a module can invoke any of the module's members.
	l.wireSinks()
	return l.frag
}

func (l *linker) originOf(relPath, module string) string {
	if l.origin == nil {
		return ""
	}
	return l.origin(relPath, module)
}

func (l *linker) addDef(f *fileExtraction, fd *funcDecl) {
	sym := symbol.New(l.lang, fd.module, fd.receiver, fd.name, fd.arity)
	idx := len(l.frag.Nodes)
	l.frag.Nodes = append(l.frag.Nodes, graph.NodeSpec{
		Sym:         sym,
		Entrypoint:  fd.entryReason != "",
		EntryReason: fd.entryReason,
		File:        f.path,
		Line:        fd.line,
		Package:     l.originOf(f.path, fd.module),
	})

	ref := &defRef{sym: sym, nodeIdx: idx, module: fd.module}
	l.byName[fd.name] = append(l.byName[fd.name], ref)
	key := fd.module + "\x00" + fd.name
	// First declaration wins on collision; later ones remain reachable via
	// the by-name index.
	if _, exists := l.byModName[key]; !exists {
		l.byModName[key] = ref
	}
}

func (l *linker) addTopLevel(f *fileExtraction) {
	if idx, ok := l.topLevels[f.module]; ok {
		// Another file of the same module already holds the top-level node;
		// upgrade it to an entrypoint if this file warrants it.
		if f.topEntry != "" && !l.frag.Nodes[idx].Entrypoint {
			l.frag.Nodes[idx].Entrypoint = true
			l.frag.Nodes[idx].EntryReason = f.topEntry
		}
		return
	}
	sym := symbol.Coarse(l.lang, f.module, topLevelName)
	l.topLevels[f.module] = len(l.frag.Nodes)
	l.frag.Nodes = append(l.frag.Nodes, graph.NodeSpec{
		Sym:         sym,
		Entrypoint:  f.topEntry != "",
		EntryReason: f.topEntry,
		File:        f.path,
		Package:     l.originOf(f.path, f.module),
		Synthetic:   true,
	})
}

// promoteHandlers marks identifier arguments of a registration call as
// entrypoints: the framework, not in-graph code, will invoke them.
func (l *linker) promoteHandlers(f *fileExtraction, c *callSite) {
	reason := "registered via " + c.callee
	for _, arg := range c.args {
		ref, ok := l.byModName[f.module+"\x00"+arg]
		if !ok {
			refs := l.byName[arg]
			if len(refs) != 1 {
				continue
			}
			ref = refs[0]
		}
		node := &l.frag.Nodes[ref.nodeIdx]
		if !node.Entrypoint {
			node.Entrypoint = true
			node.EntryReason = reason
		}
	}
}

func (l *linker) callerSym(f *fileExtraction, c *callSite) symbol.Symbol {
	if c.callerIdx >= 0 {
		fd := &f.defs[c.callerIdx]
		return symbol.New(l.lang, fd.module, fd.receiver, fd.name, fd.arity)
	}
	return symbol.Coarse(l.lang, f.module, topLevelName)
}

func (l *linker) resolve(f *fileExtraction, c *callSite) {
	caller := l.callerSym(f, c)

	if c.dynamic != "" {
		l.addEdge(caller, l.sinkFor(f.module), graph.Conservative, c.line)
		return
	}

	// Qualifier naming an imported module: resolve against that module's
	// declarations, or record the call into un-analyzed code as an external
	// coarse node so package-level matching still sees it.
	if c.qualifier != "" {
		if mod, ok := f.imports[c.qualifier]; ok {
			if ref, ok := l.byModName[mod+"\x00"+c.callee]; ok {
				l.addEdge(caller, ref.sym, graph.Definite, c.line)
				return
			}
			l.addExternal(caller, mod, c)
			return
		}
	}

	// Unqualified (or explicitly self-directed) calls resolve within the
	// module first. Receiver-qualified calls go through name dispatch so
	// that multiple candidate methods each keep a conservative edge.
	if c.qualifier == "" || c.qualifier == "self" || c.qualifier == "this" {
		if ref, ok := l.byModName[f.module+"\x00"+c.callee]; ok {
			l.addEdge(caller, ref.sym, graph.Definite, c.line)
			return
		}
		// The callee itself may be an imported binding, as in
		// `from pkg import f; f()` or `const f = require('pkg'); f()`.
		if mod, ok := f.imports[c.callee]; ok {
			if ref, ok := l.byModName[mod+"\x00"+c.callee]; ok {
				l.addEdge(caller, ref.sym, graph.Definite, c.line)
				return
			}
			l.addExternal(caller, mod, c)
			return
		}
	}

	// Name-based dispatch across the language's declarations. A unique match
	// is definite; multiple candidates each get a conservative edge, and
	// oversized candidate sets route through the unknown sink instead.
	refs := l.byName[c.callee]
	switch {
	case len(refs) == 0:
		// Builtin, stdlib, or an un-imported name: nothing to connect.
	case len(refs) == 1:
		l.addEdge(caller, refs[0].sym, graph.Definite, c.line)
	case len(refs) <= maxDispatchTargets:
		for _, ref := range refs {
			l.addEdge(caller, ref.sym, graph.Conservative, c.line)
		}
	default:
		l.addEdge(caller, l.sinkFor(f.module), graph.Conservative, c.line)
	}
}

// addExternal emits a conservative edge into a module that was imported but
// never analyzed. The coarse target node carries the package origin so
// advisory symbols can match it even without source for the dependency.
func (l *linker) addExternal(caller symbol.Symbol, mod string, c *callSite) {
	target := symbol.Coarse(l.lang, mod, c.callee)
	if key := target.Key(); !l.externals[key] {
		l.externals[key] = true
		l.frag.Nodes = append(l.frag.Nodes, graph.NodeSpec{
			Sym:     target,
			Package: l.originOf("", mod),
		})
	}
	l.addEdge(caller, target, graph.Conservative, c.line)
}

// sinkFor returns the module's unknown-sink symbol, creating its node on
// first use.
func (l *linker) sinkFor(module string) symbol.Symbol {
	if s, ok := l.sinks[module]; ok {
		return s
	}
	s := symbol.Coarse(l.lang, module, sinkName)
	l.sinks[module] = s
	l.frag.Nodes = append(l.frag.Nodes, graph.NodeSpec{
		Sym:       s,
		Package:   l.originOf("", module),
		Synthetic: true,
	})
	return s
}

// wireSinks connects each module's unknown sink to every declaration in that
// module: dynamic dispatch can name any of them.
func (l *linker) wireSinks() {
	if len(l.sinks) == 0 {
		return
	}
	byModule := make(map[string][]symbol.Symbol)
	for _, refs := range l.byName {
		for _, ref := range refs {
			byModule[ref.module] = append(byModule[ref.module], ref.sym)
		}
	}
	modules := make([]string, 0, len(l.sinks))
	for m := range l.sinks {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		sink := l.sinks[m]
		for _, target := range byModule[m] {
			l.addEdge(sink, target, graph.Conservative, 0)
		}
	}
}

func (l *linker) addEdge(from, to symbol.Symbol, conf graph.Confidence, line uint32) {
	l.frag.Edges = append(l.frag.Edges, graph.EdgeSpec{
		Caller:     from,
		Callee:     to,
		Confidence: conf,
		Line:       line,
	})
}
