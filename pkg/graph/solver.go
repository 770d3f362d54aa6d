package graph

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/depscope/depscope/pkg/symbol"
)

// Policy selects which edges the solver traverses.
type Policy string

const (
	// PolicyConservative traverses both definite and conservative edges.
	// Maximizes recall of true reachability; the default.
	PolicyConservative Policy = "conservative"
	// PolicyStrict traverses only definite edges. Tighter results, but can
	// miss reachability through dynamic dispatch.
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name from CLI or config input.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyConservative, "":
		return PolicyConservative, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown confidence policy %q (want conservative or strict)", s)
	}
}

// Result is the reachable-node closure computed from the entrypoint set
// under one policy. The graph is untouched; Solve may be re-run with the
// alternate policy on the same graph.
type Result struct {
	Policy    Policy
	g         *Graph
	reachable *roaring.Bitmap
	parent    []int64
}

// Solve runs a breadth-first search from the entrypoint set. BFS is chosen
// over DFS so that witness paths come out shortest, which keeps the
// "why is this reachable" explanations readable. Each node is visited once,
// so cycles terminate naturally. Complexity is linear in nodes plus edges.
func Solve(g *Graph, policy Policy) *Result {
	r := &Result{
		Policy:    policy,
		g:         g,
		reachable: roaring.New(),
		parent:    make([]int64, len(g.nodes)),
	}
	for i := range r.parent {
		r.parent[i] = -1
	}

	queue := make([]uint32, 0, len(g.entrypoints)*2)
	for _, id := range g.entrypoints {
		if !r.reachable.Contains(id) {
			r.reachable.Add(id)
			queue = append(queue, id)
		}
	}

	head := 0
	for head < len(queue) {
		current := queue[head]
		head++

		for _, edge := range g.OutEdges(current) {
			if policy == PolicyStrict && edge.Confidence != Definite {
				continue
			}
			if !r.reachable.Contains(edge.To) {
				r.reachable.Add(edge.To)
				r.parent[edge.To] = int64(current)
				queue = append(queue, edge.To)
			}
		}
	}

	return r
}

// Reachable reports whether a node is in the closure.
func (r *Result) Reachable(id uint32) bool {
	return r.reachable.Contains(id)
}

// Count returns the size of the reachable set.
func (r *Result) Count() uint64 {
	return r.reachable.GetCardinality()
}

// ReachableIDs returns the reachable node IDs in ascending order.
func (r *Result) ReachableIDs() []uint32 {
	return r.reachable.ToArray()
}

// WitnessIDs returns the shortest path of node IDs from an entrypoint to id,
// or nil if id is unreachable.
func (r *Result) WitnessIDs(id uint32) []uint32 {
	if !r.reachable.Contains(id) {
		return nil
	}

	var rev []uint32
	cur := int64(id)
	for cur >= 0 {
		rev = append(rev, uint32(cur))
		cur = r.parent[cur]
	}

	path := make([]uint32, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// Witness returns the shortest call chain from an entrypoint to id as
// symbols, or nil if id is unreachable.
func (r *Result) Witness(id uint32) []symbol.Symbol {
	ids := r.WitnessIDs(id)
	if ids == nil {
		return nil
	}
	path := make([]symbol.Symbol, len(ids))
	for i, nid := range ids {
		path[i] = r.g.Node(nid).Sym
	}
	return path
}
