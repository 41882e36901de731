package graph

import (
	"github.com/chazu/vibecad/pkg/dfile"
)

// Node is one feature in the graph.
type Node struct {
	ID   string
	Kind dfile.Kind
	// Index is the declaration position in the record.
	Index int
	// Ref is the sketch id the feature consumes, if any.
	Ref string
}

// Graph is the dependency graph of a record. Edges run from a feature to the
// features it depends on. It is built once and never mutated.
type Graph struct {
	Nodes map[string]*Node
	Edges map[string][]string

	order []string
}

// Build derives the graph of rec. References to unknown ids are kept as
// edges so a Validator can report them. When ids repeat, the first
// declaration wins.
func Build(rec *dfile.Record) *Graph {
	g := &Graph{
		Nodes: make(map[string]*Node),
		Edges: make(map[string][]string),
	}
	if rec == nil {
		return g
	}
	for i, f := range rec.Features {
		if _, dup := g.Nodes[f.ID]; dup {
			continue
		}
		n := &Node{ID: f.ID, Kind: f.Kind, Index: i}
		if f.Sketch != nil && *f.Sketch != "" {
			n.Ref = *f.Sketch
			g.Edges[f.ID] = append(g.Edges[f.ID], n.Ref)
		}
		g.Nodes[f.ID] = n
		g.order = append(g.order, f.ID)
	}
	return g
}

// Get returns the node with the given id, or nil.
func (g *Graph) Get(id string) *Node {
	return g.Nodes[id]
}

// Dependencies returns the ids id depends on.
func (g *Graph) Dependencies(id string) []string {
	return g.Edges[id]
}

// Dependents returns the ids that depend on id, in declaration order.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, fid := range g.order {
		for _, dep := range g.Edges[fid] {
			if dep == id {
				out = append(out, fid)
				break
			}
		}
	}
	return out
}

// TopoOrder returns every feature id ordered so that each feature follows
// its dependencies. Ties keep declaration order. Dependencies on unknown
// ids are ignored.
func (g *Graph) TopoOrder() []string {
	indeg := make(map[string]int, len(g.Nodes))
	for _, id := range g.order {
		for _, dep := range g.Edges[id] {
			if _, ok := g.Nodes[dep]; ok && dep != id {
				indeg[id]++
			}
		}
	}

	out := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(out) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || indeg[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for _, d := range g.Dependents(id) {
				indeg[d]--
			}
			progressed = true
			break
		}
		if !progressed {
			// The rest form a cycle; keep declaration order.
			for _, id := range g.order {
				if !done[id] {
					done[id] = true
					out = append(out, id)
				}
			}
		}
	}
	return out
}
