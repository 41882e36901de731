package sdfx

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/vibecad/pkg/kernel"
)

// coarse keeps marching cubes fast in tests.
const coarse = 40

func assertBox(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64) {
	t.Helper()
	min, max := s.BoundingBox()
	const tol = 0.01
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], wantMax[i])
		}
	}
}

func TestCircleBounds(t *testing.T) {
	k := New()
	p, err := k.Circle(5, -3, 2)
	if err != nil {
		t.Fatalf("Circle failed: %v", err)
	}
	min, max := p.Bounds()
	if min != [2]float64{3, -5} || max != [2]float64{7, -1} {
		t.Errorf("bounds = %v..%v", min, max)
	}
}

func TestCircleRejectsNonPositiveRadius(t *testing.T) {
	k := New()
	if _, err := k.Circle(0, 0, 0); err == nil {
		t.Error("expected error for zero radius")
	}
}

func TestPolygonNeedsThreeVertices(t *testing.T) {
	k := New()
	if _, err := k.Polygon([][2]float64{{0, 0}, {1, 0}}); err == nil {
		t.Error("expected error for two vertices")
	}
}

func TestExtrudeOrientations(t *testing.T) {
	k := New()
	square, err := k.Polygon([][2]float64{{0, 0}, {10, 0}, {10, 4}, {0, 4}})
	if err != nil {
		t.Fatalf("Polygon failed: %v", err)
	}

	tests := []struct {
		o        kernel.Orientation
		min, max [3]float64
	}{
		// (u, v, n) maps to (X, Y, Z)
		{kernel.OrientXY, [3]float64{0, 0, 0}, [3]float64{10, 4, 25}},
		// (u, v, n) maps to (Y, Z, X)
		{kernel.OrientYZ, [3]float64{0, 0, 0}, [3]float64{25, 10, 4}},
		// (u, v, n) maps to (Z, X, Y)
		{kernel.OrientZX, [3]float64{0, 0, 0}, [3]float64{4, 25, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.o.String(), func(t *testing.T) {
			s, err := k.Extrude(square, 25, tt.o)
			if err != nil {
				t.Fatalf("Extrude failed: %v", err)
			}
			assertBox(t, s, tt.min, tt.max)
		})
	}
}

func TestExtrudeRejectsNonPositiveLength(t *testing.T) {
	k := New()
	disc, _ := k.Circle(0, 0, 1)
	if _, err := k.Extrude(disc, 0, kernel.OrientXY); err == nil {
		t.Error("expected error for zero length")
	}
	if _, err := k.Extrude(disc, 1, kernel.Orientation(9)); err == nil {
		t.Error("expected error for unknown orientation")
	}
}

func TestUnionProfilesAndSolids(t *testing.T) {
	k := New()
	a, _ := k.Circle(0, 0, 5)
	b, _ := k.Circle(20, 0, 5)
	both := k.UnionProfiles(a, b)
	min, max := both.Bounds()
	if math.Abs(min[0]+5) > 0.01 || math.Abs(max[0]-25) > 0.01 {
		t.Errorf("union profile bounds = %v..%v", min, max)
	}

	s1, _ := k.Extrude(a, 10, kernel.OrientXY)
	s2, _ := k.Extrude(b, 30, kernel.OrientXY)
	assertBox(t, k.Union(s1, s2), [3]float64{-5, -5, 0}, [3]float64{25, 5, 30})
}

func TestToMesh(t *testing.T) {
	k := NewWithCells(coarse)
	disc, _ := k.Circle(0, 0, 10)
	cyl, err := k.Extrude(disc, 50, kernel.OrientXY)
	if err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	min, max := mesh.Bounds()
	const tol = 2.0
	if math.Abs(float64(min[2])) > tol || math.Abs(float64(max[2])-50) > tol {
		t.Errorf("mesh z range = %f..%f, expected ~0..50", min[2], max[2])
	}
	t.Logf("cylinder triangle count: %d", mesh.TriangleCount())
}

func TestSaveSTL(t *testing.T) {
	k := NewWithCells(coarse)
	disc, _ := k.Circle(0, 0, 10)
	cyl, _ := k.Extrude(disc, 20, kernel.OrientXY)

	path := filepath.Join(t.TempDir(), "part.stl")
	if err := k.SaveSTL(cyl, path); err != nil {
		t.Fatalf("SaveSTL failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// 80 byte header + 4 byte count + 50 bytes per triangle.
	if info.Size() <= 84 {
		t.Errorf("stl file too small: %d bytes", info.Size())
	}
}

func TestNewWithCellsDefaults(t *testing.T) {
	if k := NewWithCells(0); k.cells != DefaultMeshCells {
		t.Errorf("cells = %d, want %d", k.cells, DefaultMeshCells)
	}
}
