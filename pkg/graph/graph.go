// Package graph holds the merged cross-language call graph, the reachability
// solver, and the debug export.
package graph

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/depscope/depscope/pkg/symbol"
	"github.com/zeebo/blake3"
)

// Confidence tags how a call edge's target was resolved.
type Confidence uint8

const (
	// Conservative marks an edge whose target could not be fully resolved
	// (dynamic dispatch, reflection, computed targets). Traversed only under
	// the conservative solver policy.
	Conservative Confidence = iota + 1
	// Definite marks an unambiguously resolved call target.
	Definite
)

// MarshalText renders the confidence tag for JSON exports.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// String returns the lowercase tag used in exports.
func (c Confidence) String() string {
	switch c {
	case Definite:
		return "definite"
	case Conservative:
		return "conservative"
	default:
		return "unknown"
	}
}

// Node is a callable unit in the merged graph.
type Node struct {
	ID          uint32        `json:"id"`
	Sym         symbol.Symbol `json:"symbol"`
	Entrypoint  bool          `json:"entrypoint,omitempty"`
	EntryReason string        `json:"entry_reason,omitempty"`
	File        string        `json:"file,omitempty"`
	Line        uint32        `json:"line,omitempty"`
	Package     string        `json:"package,omitempty"`
	Synthetic   bool          `json:"synthetic,omitempty"`
}

// Edge is a directed call from one node to another.
type Edge struct {
	From       uint32     `json:"from"`
	To         uint32     `json:"to"`
	Confidence Confidence `json:"confidence"`
	Line       uint32     `json:"line,omitempty"`
}

// NodeSpec is a node as emitted by a language adapter, before interning.
type NodeSpec struct {
	Sym         symbol.Symbol
	Entrypoint  bool
	EntryReason string
	File        string
	Line        uint32
	Package     string
	Synthetic   bool
}

// EdgeSpec is an edge as emitted by a language adapter.
type EdgeSpec struct {
	Caller     symbol.Symbol
	Callee     symbol.Symbol
	Confidence Confidence
	Line       uint32
}

// ParseFailure records a source file that could not be parsed. The file's
// functions are simply absent from the graph; the failure is surfaced so the
// mapper never converts it into a false Unreachable.
type ParseFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Fragment is one language adapter's portion of the call graph.
type Fragment struct {
	Language    string
	Nodes       []NodeSpec
	Edges       []EdgeSpec
	Failures    []ParseFailure
	FilesParsed int
}

// Graph is the merged, immutable call graph. It is built once per scan by a
// Builder and read-only afterwards.
type Graph struct {
	interner    *symbol.Interner
	nodes       []Node
	edges       []Edge
	out         [][]int32
	entrypoints []uint32
	sinks       []uint32
	packages    map[string][]uint32
	languages   map[string]LanguageStats
	checksum    string
}

// LanguageStats surfaces per-language graph accuracy: languages with many
// conservative edges yield lower-confidence verdicts by nature, not defect.
type LanguageStats struct {
	Nodes             int     `json:"nodes"`
	Edges             int     `json:"edges"`
	ConservativeEdges int     `json:"conservative_edges"`
	ConservativeRatio float64 `json:"conservative_ratio"`
	FilesParsed       int     `json:"files_parsed"`
	ParseFailures     int     `json:"parse_failures"`
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the edge count after deduplication.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Nodes returns the nodes in ID order. Callers must not mutate.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns the deduplicated edges. Callers must not mutate.
func (g *Graph) Edges() []Edge { return g.edges }

// Node returns the node with the given ID.
func (g *Graph) Node(id uint32) Node { return g.nodes[id] }

// OutEdges returns the edges leaving a node.
func (g *Graph) OutEdges(id uint32) []Edge {
	if int(id) >= len(g.out) {
		return nil
	}
	indices := g.out[id]
	edges := make([]Edge, len(indices))
	for i, idx := range indices {
		edges[i] = g.edges[idx]
	}
	return edges
}

// Entrypoints returns the IDs of all entrypoint nodes.
func (g *Graph) Entrypoints() []uint32 { return g.entrypoints }

// Lookup resolves a symbol to a node ID, trying the exact key first and the
// coarse key as fallback. The fallback accounts for advisory symbols that
// carry no signature and for adapter nodes that fell back to coarse identity.
func (g *Graph) Lookup(s symbol.Symbol) (uint32, bool) {
	if id, ok := g.interner.Lookup(s); ok {
		return id, true
	}
	if ids := g.interner.LookupCoarse(s); len(ids) > 0 {
		return ids[0], true
	}
	return 0, false
}

// LookupAll resolves a symbol to every matching node ID (exact plus coarse).
func (g *Graph) LookupAll(s symbol.Symbol) []uint32 {
	if id, ok := g.interner.Lookup(s); ok {
		return []uint32{id}
	}
	return g.interner.LookupCoarse(s)
}

// NodesByPackage returns the IDs of all nodes originating from a dependency
// package, keyed by the inventory package name.
func (g *Graph) NodesByPackage(pkg string) []uint32 {
	return g.packages[pkg]
}

// Languages returns per-language graph statistics.
func (g *Graph) Languages() map[string]LanguageStats { return g.languages }

// Checksum returns the deterministic blake3 fingerprint of the graph
// contents, independent of merge order.
func (g *Graph) Checksum() string { return g.checksum }

// Builder merges adapter fragments into one Graph. It is the only structure
// mutated during the merge and must be driven from a single goroutine; the
// scan session feeds it sequentially after the adapter barrier.
type Builder struct {
	g         *Graph
	edgeIndex map[uint64]int
	frozen    bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		g: &Graph{
			interner:  symbol.NewInterner(1024),
			packages:  make(map[string][]uint32),
			languages: make(map[string]LanguageStats),
		},
		edgeIndex: make(map[uint64]int, 4096),
	}
}

// AddFragment merges one adapter's output. Node identity merges by canonical
// symbol; duplicate edges collapse with the highest observed confidence.
func (b *Builder) AddFragment(f *Fragment) {
	if b.frozen {
		panic("graph: AddFragment after Finalize")
	}

	stats := b.g.languages[f.Language]
	stats.FilesParsed += f.FilesParsed
	stats.ParseFailures += len(f.Failures)

	for _, spec := range f.Nodes {
		b.addNode(spec)
		stats.Nodes++
	}
	for _, spec := range f.Edges {
		conservative := b.addEdge(spec)
		stats.Edges++
		if conservative {
			stats.ConservativeEdges++
		}
	}
	if stats.Edges > 0 {
		stats.ConservativeRatio = float64(stats.ConservativeEdges) / float64(stats.Edges)
	}
	b.g.languages[f.Language] = stats
}

// AddNode inserts or merges a single node and returns its ID. Exposed for
// tests and for synthetic graphs.
func (b *Builder) AddNode(spec NodeSpec) uint32 {
	return b.addNode(spec)
}

// AddEdge inserts a single edge, collapsing duplicates.
func (b *Builder) AddEdge(spec EdgeSpec) {
	b.addEdge(spec)
}

func (b *Builder) addNode(spec NodeSpec) uint32 {
	before := b.g.interner.Len()
	id := b.g.interner.Intern(spec.Sym)

	if int(id) == before {
		b.g.nodes = append(b.g.nodes, Node{
			ID:          id,
			Sym:         spec.Sym,
			Entrypoint:  spec.Entrypoint,
			EntryReason: spec.EntryReason,
			File:        spec.File,
			Line:        spec.Line,
			Package:     spec.Package,
			Synthetic:   spec.Synthetic,
		})
		if spec.Entrypoint {
			b.g.entrypoints = append(b.g.entrypoints, id)
		}
		if spec.Synthetic {
			b.g.sinks = append(b.g.sinks, id)
		}
		if spec.Package != "" {
			b.g.packages[spec.Package] = append(b.g.packages[spec.Package], id)
		}
		return id
	}

	// Cross-adapter unification: two adapters emitted the same externally
	// visible symbol. Merge metadata instead of duplicating the node.
	node := &b.g.nodes[id]
	if spec.Entrypoint && !node.Entrypoint {
		node.Entrypoint = true
		node.EntryReason = spec.EntryReason
		b.g.entrypoints = append(b.g.entrypoints, id)
	}
	if node.File == "" {
		node.File = spec.File
		node.Line = spec.Line
	}
	if node.Package == "" && spec.Package != "" {
		node.Package = spec.Package
		b.g.packages[spec.Package] = append(b.g.packages[spec.Package], id)
	}
	if spec.Synthetic && !node.Synthetic {
		node.Synthetic = true
		b.g.sinks = append(b.g.sinks, id)
	}
	return id
}

// addEdge inserts an edge and reports whether it ended up conservative.
func (b *Builder) addEdge(spec EdgeSpec) bool {
	from := b.addNode(NodeSpec{Sym: spec.Caller})
	to := b.addNode(NodeSpec{Sym: spec.Callee})

	conf := spec.Confidence
	if conf == 0 {
		conf = Conservative
	}
	// Edges into a node whose signature is unknown are never trusted as
	// definite: the coarse fallback of the identity scheme hides overload
	// and dispatch ambiguity.
	if b.g.nodes[to].Sym.CoarseSignature() && !b.g.nodes[to].Synthetic {
		conf = Conservative
	}

	var key [8]byte
	binary.LittleEndian.PutUint32(key[:4], from)
	binary.LittleEndian.PutUint32(key[4:], to)
	h := xxhash.Sum64(key[:])

	if idx, ok := b.edgeIndex[h]; ok && b.g.edges[idx].From == from && b.g.edges[idx].To == to {
		// Definite wins over conservative when both were observed.
		if conf > b.g.edges[idx].Confidence {
			b.g.edges[idx].Confidence = conf
		}
		return b.g.edges[idx].Confidence == Conservative
	}

	b.g.edges = append(b.g.edges, Edge{From: from, To: to, Confidence: conf, Line: spec.Line})
	b.edgeIndex[h] = len(b.g.edges) - 1
	return conf == Conservative
}

// Finalize wires unknown sinks to the entrypoint set, builds the adjacency
// index, computes the checksum, and freezes the graph. After Finalize the
// graph is immutable and safe for concurrent readers.
func (b *Builder) Finalize() *Graph {
	if b.frozen {
		return b.g
	}
	b.frozen = true

	// An unknown sink is reachable from every entrypoint: dynamic code may
	// be invoked from anywhere, so nothing behind it may ever be falsely
	// marked unreachable.
	for _, entry := range b.g.entrypoints {
		for _, sink := range b.g.sinks {
			if entry != sink {
				b.addEdge(EdgeSpec{
					Caller:     b.g.nodes[entry].Sym,
					Callee:     b.g.nodes[sink].Sym,
					Confidence: Conservative,
				})
			}
		}
	}

	b.g.out = make([][]int32, len(b.g.nodes))
	for i, e := range b.g.edges {
		b.g.out[e.From] = append(b.g.out[e.From], int32(i))
	}

	b.g.checksum = b.fingerprint()
	return b.g
}

// fingerprint hashes a canonical, order-independent serialization of the
// graph so that identical scans yield identical checksums.
func (b *Builder) fingerprint() string {
	lines := make([]string, 0, len(b.g.nodes)+len(b.g.edges))
	for _, n := range b.g.nodes {
		entry := ""
		if n.Entrypoint {
			entry = "!"
		}
		lines = append(lines, "n "+n.Sym.Key()+entry)
	}
	for _, e := range b.g.edges {
		lines = append(lines, fmt.Sprintf("e %s>%s %s",
			b.g.nodes[e.From].Sym.Key(), b.g.nodes[e.To].Sym.Key(), e.Confidence))
	}
	sort.Strings(lines)

	h := blake3.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}
