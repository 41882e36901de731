package graph

import (
	"slices"
	"testing"

	"github.com/chazu/vibecad/pkg/dfile"
)

func ref(s string) *string { return &s }

func sketch(id string) dfile.Feature {
	return dfile.Feature{ID: id, Kind: dfile.KindSketch, SketchPlane: ref("XY")}
}

func pad(id, sk string) dfile.Feature {
	return dfile.Feature{ID: id, Kind: dfile.KindPad, Sketch: ref(sk), Parameters: map[string]any{"length": 5.0}}
}

func record(order []string, features ...dfile.Feature) *dfile.Record {
	return &dfile.Record{Features: features, UpdateOrder: order}
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil)
	if g.Nodes == nil || g.Edges == nil {
		t.Fatal("maps should be initialized")
	}
	if len(g.Nodes) != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", len(g.Nodes))
	}
	if len(g.TopoOrder()) != 0 {
		t.Error("empty graph should have empty order")
	}
}

func TestBuildEdges(t *testing.T) {
	g := Build(record(nil,
		sketch("sketch_1"),
		pad("pad_1", "sketch_1"),
		pad("pad_2", "sketch_1"),
		dfile.Feature{ID: "pocket_1", Kind: dfile.KindPocket, Sketch: ref("sketch_9")},
	))

	if len(g.Nodes) != 4 {
		t.Fatalf("node count = %d, want 4", len(g.Nodes))
	}
	if n := g.Get("pad_2"); n == nil || n.Index != 2 || n.Ref != "sketch_1" {
		t.Errorf("pad_2 = %+v", n)
	}
	if deps := g.Dependencies("pocket_1"); !slices.Equal(deps, []string{"sketch_9"}) {
		t.Errorf("dangling reference should stay an edge, got %v", deps)
	}
	if deps := g.Dependencies("sketch_1"); len(deps) != 0 {
		t.Errorf("sketch should have no dependencies, got %v", deps)
	}
	if got := g.Dependents("sketch_1"); !slices.Equal(got, []string{"pad_1", "pad_2"}) {
		t.Errorf("dependents = %v", got)
	}
}

func TestTopoOrder(t *testing.T) {
	// Declared out of order: pads come before their sketches.
	g := Build(record(nil,
		pad("pad_1", "sketch_1"),
		pad("pad_2", "sketch_2"),
		sketch("sketch_2"),
		sketch("sketch_1"),
		dfile.Feature{ID: "plane_1", Kind: dfile.KindPlaneOffset},
	))

	got := g.TopoOrder()
	want := []string{"sketch_2", "pad_2", "sketch_1", "pad_1", "plane_1"}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestTopoOrderKeepsValidDeclarationOrder(t *testing.T) {
	g := Build(record(nil, sketch("a"), pad("b", "a"), sketch("c"), pad("d", "c")))
	if got := g.TopoOrder(); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("order = %v", got)
	}
}

func TestTopoOrderCycle(t *testing.T) {
	g := Build(record(nil, pad("p1", "p2"), pad("p2", "p1"), sketch("s")))
	got := g.TopoOrder()
	if len(got) != 3 {
		t.Fatalf("every node must appear once, got %v", got)
	}
	if got[0] != "s" {
		t.Errorf("acyclic node should come first, got %v", got)
	}
}
