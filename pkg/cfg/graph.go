package cfg

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
)

// Exit is the sentinel node every completed path of a method flows into.
// It never has outgoing edges.
const Exit int64 = -1

// Edge is one directed, weighted edge.
type Edge struct {
	Source int64 `json:"source"`
	Target int64 `json:"target"`
	Kind   Kind  `json:"kind"`
}

type edgeKey struct {
	src, dst int64
}

// Graph is the control flow multigraph of one method. Each edge is a
// weighted line whose weight is its Kind; parallel lines survive until
// Collapse.
type Graph struct {
	UnitID   int64
	MethodID int64

	g *multi.WeightedDirectedGraph
	// nextLine numbers lines in insertion order.
	nextLine int64
}

// NewGraph returns an empty graph for a method.
func NewGraph(unitID, methodID int64) *Graph {
	return &Graph{
		UnitID:   unitID,
		MethodID: methodID,
		g:        multi.NewWeightedDirectedGraph(),
	}
}

// Directed exposes the underlying multigraph for traversal.
func (g *Graph) Directed() graph.Directed {
	return g.g
}

// AddEdge inserts an edge src -> dst. Edges leaving Exit are dropped.
func (g *Graph) AddEdge(src, dst int64, k Kind) {
	if src == Exit {
		return
	}
	g.g.SetWeightedLine(multi.WeightedLine{
		F:   multi.Node(src),
		T:   multi.Node(dst),
		W:   float64(k),
		UID: g.nextLine,
	})
	g.nextLine++
}

// Link resolves every marker against target.
func (g *Graph) Link(markers []Marker, target int64) {
	for _, m := range markers {
		g.AddEdge(m.Stmt, target, m.EdgeKind())
	}
}

// Collapse replaces each bundle of parallel edges by one Empty edge. Pairs
// with a single edge keep their kind.
func (g *Graph) Collapse() {
	collapsed := multi.NewWeightedDirectedGraph()
	var next int64
	for _, key := range g.pairs() {
		lines := g.lines(key.src, key.dst)
		w := lines[0].Weight()
		if len(lines) > 1 {
			w = float64(Empty)
		}
		collapsed.SetWeightedLine(multi.WeightedLine{
			F:   multi.Node(key.src),
			T:   multi.Node(key.dst),
			W:   w,
			UID: next,
		})
		next++
	}
	g.g = collapsed
	g.nextLine = next
}

// EdgeCount returns the number of edges, parallel edges included.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, key := range g.pairs() {
		n += len(g.lines(key.src, key.dst))
	}
	return n
}

// NodeCount returns the number of distinct nodes touched by an edge.
func (g *Graph) NodeCount() int {
	return len(graph.NodesOf(g.g.Nodes()))
}

// Multiplicity returns the number of parallel edges src -> dst.
func (g *Graph) Multiplicity(src, dst int64) int {
	return len(g.lines(src, dst))
}

// HasEdge reports whether any edge src -> dst exists.
func (g *Graph) HasEdge(src, dst int64) bool {
	return g.g.HasEdgeFromTo(src, dst)
}

// KindOf returns the kind of the first edge src -> dst.
func (g *Graph) KindOf(src, dst int64) (Kind, bool) {
	lines := g.lines(src, dst)
	if len(lines) == 0 {
		return Empty, false
	}
	return Kind(lines[0].Weight()), true
}

// Successors returns the distinct targets of src in ascending order.
func (g *Graph) Successors(src int64) []int64 {
	return sortedIDs(g.g.From(src))
}

// Predecessors returns the distinct sources of dst in ascending order.
func (g *Graph) Predecessors(dst int64) []int64 {
	return sortedIDs(g.g.To(dst))
}

// Edges returns every edge sorted by source, then target. Parallel edges
// keep their insertion order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, key := range g.pairs() {
		for _, l := range g.lines(key.src, key.dst) {
			edges = append(edges, Edge{Source: key.src, Target: key.dst, Kind: Kind(l.Weight())})
		}
	}
	return edges
}

// pairs lists every connected (source, target) pair in sorted order.
func (g *Graph) pairs() []edgeKey {
	var out []edgeKey
	for _, src := range sortedIDs(g.g.Nodes()) {
		for _, dst := range sortedIDs(g.g.From(src)) {
			out = append(out, edgeKey{src, dst})
		}
	}
	return out
}

// lines returns the parallel lines src -> dst in insertion order.
func (g *Graph) lines(src, dst int64) []graph.WeightedLine {
	lines := graph.WeightedLinesOf(g.g.WeightedLines(src, dst))
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID() < lines[j].ID() })
	return lines
}

func sortedIDs(it graph.Nodes) []int64 {
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
