package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// Export is the serializable form of the merged graph for external
// visualization tooling: nodes plus edges with confidence tags.
type Export struct {
	Checksum  string                   `json:"checksum"`
	Nodes     []Node                   `json:"nodes"`
	Edges     []Edge                   `json:"edges"`
	Languages map[string]LanguageStats `json:"languages"`
	Metrics   *Metrics                 `json:"metrics,omitempty"`
}

// Metrics carries degree and centrality statistics for the debug export.
type Metrics struct {
	TotalNodes        int          `json:"total_nodes"`
	TotalEdges        int          `json:"total_edges"`
	ConservativeEdges int          `json:"conservative_edges"`
	AvgDegree         float64      `json:"avg_degree"`
	Density           float64      `json:"density"`
	TopNodes          []NodeMetric `json:"top_nodes,omitempty"`
}

// NodeMetric ranks a node by PageRank within the call graph; high-rank nodes
// are the hubs a vulnerability is most likely to route through.
type NodeMetric struct {
	ID        uint32  `json:"id"`
	Symbol    string  `json:"symbol"`
	PageRank  float64 `json:"pagerank"`
	InDegree  int     `json:"in_degree"`
	OutDegree int     `json:"out_degree"`
}

// topNodeCount bounds the ranked node list in exports.
const topNodeCount = 10

// Export snapshots the graph for serialization.
func (g *Graph) Export(withMetrics bool) *Export {
	e := &Export{
		Checksum:  g.checksum,
		Nodes:     g.nodes,
		Edges:     g.edges,
		Languages: g.languages,
	}
	if withMetrics {
		e.Metrics = g.ComputeMetrics()
	}
	return e
}

// ComputeMetrics calculates degree statistics and PageRank over the graph.
func (g *Graph) ComputeMetrics() *Metrics {
	m := &Metrics{
		TotalNodes: len(g.nodes),
		TotalEdges: len(g.edges),
	}
	if len(g.nodes) == 0 {
		return m
	}

	inDegree := make([]int, len(g.nodes))
	outDegree := make([]int, len(g.nodes))
	totalDegree := 0
	for _, e := range g.edges {
		inDegree[e.To]++
		outDegree[e.From]++
		totalDegree += 2
		if e.Confidence == Conservative {
			m.ConservativeEdges++
		}
	}
	m.AvgDegree = float64(totalDegree) / float64(len(g.nodes))
	if len(g.nodes) > 1 {
		maxEdges := len(g.nodes) * (len(g.nodes) - 1)
		m.Density = float64(len(g.edges)) / float64(maxEdges)
	}

	ranks := g.pageRank()

	metrics := make([]NodeMetric, 0, len(g.nodes))
	for _, n := range g.nodes {
		metrics = append(metrics, NodeMetric{
			ID:        n.ID,
			Symbol:    n.Sym.String(),
			PageRank:  ranks[n.ID],
			InDegree:  inDegree[n.ID],
			OutDegree: outDegree[n.ID],
		})
	}
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].PageRank != metrics[j].PageRank {
			return metrics[i].PageRank > metrics[j].PageRank
		}
		return metrics[i].ID < metrics[j].ID
	})
	if len(metrics) > topNodeCount {
		metrics = metrics[:topNodeCount]
	}
	m.TopNodes = metrics
	return m
}

// pageRank runs gonum's PageRank over the call graph. Self-loops (direct
// recursion) are skipped because simple directed graphs reject them.
func (g *Graph) pageRank() map[uint32]float64 {
	dg := simple.NewDirectedGraph()
	for _, n := range g.nodes {
		dg.AddNode(simple.Node(int64(n.ID)))
	}
	for _, e := range g.edges {
		if e.From == e.To {
			continue
		}
		dg.SetEdge(simple.Edge{F: simple.Node(int64(e.From)), T: simple.Node(int64(e.To))})
	}

	ranks := network.PageRank(dg, 0.85, 1e-6)
	out := make(map[uint32]float64, len(ranks))
	for id, rank := range ranks {
		out[uint32(id)] = rank
	}
	return out
}

// WriteMermaid renders the graph as a mermaid diagram for text output.
// Conservative edges are drawn dashed.
func (e *Export) WriteMermaid(w io.Writer) {
	fmt.Fprintln(w, "```mermaid")
	fmt.Fprintln(w, "graph TD")
	for _, n := range e.Nodes {
		label := n.Sym.String()
		if n.Entrypoint {
			label = label + " (entry)"
		}
		fmt.Fprintf(w, "    n%d[%q]\n", n.ID, label)
	}
	for _, edge := range e.Edges {
		arrow := "-->"
		if edge.Confidence == Conservative {
			arrow = "-.->"
		}
		fmt.Fprintf(w, "    n%d %s n%d\n", edge.From, arrow, edge.To)
	}
	fmt.Fprintln(w, "```")
}

// FormatWitness renders a witness path as an ordered call chain.
func FormatWitness(path []string) string {
	return strings.Join(path, " -> ")
}
