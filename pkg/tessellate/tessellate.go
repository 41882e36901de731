// Package tessellate turns the solid bodies built by the live backend into
// triangle meshes using a geometry kernel. One mesh is produced per body.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/vibecad/pkg/kernel"
)

// Body is a named solid, typically the result of a single pad feature.
type Body struct {
	Name  string
	Solid kernel.Solid
}

// Tessellate produces one triangle mesh per body, in body order. Bodies with
// a nil solid are skipped. The tessellator never mutates its input.
func Tessellate(bodies []Body, k kernel.Kernel) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, b := range bodies {
		if b.Solid == nil {
			continue
		}
		mesh, err := k.ToMesh(b.Solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for body %s: %w", b.Name, err)
		}
		mesh.Body = b.Name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Summary describes a set of meshes.
type Summary struct {
	Bodies    int        `json:"bodies"`
	Triangles int        `json:"triangles"`
	Min       [3]float32 `json:"min"`
	Max       [3]float32 `json:"max"`
}

// Summarize combines the counts and bounds of meshes. Empty meshes contribute
// to the body count but not to the bounds.
func Summarize(meshes []*kernel.Mesh) Summary {
	s := Summary{Bodies: len(meshes)}
	seen := false
	for _, m := range meshes {
		s.Triangles += m.TriangleCount()
		if m.IsEmpty() {
			continue
		}
		lo, hi := m.Bounds()
		if !seen {
			s.Min, s.Max = lo, hi
			seen = true
			continue
		}
		for i := 0; i < 3; i++ {
			s.Min[i] = float32(math.Min(float64(s.Min[i]), float64(lo[i])))
			s.Max[i] = float32(math.Max(float64(s.Max[i]), float64(hi[i])))
		}
	}
	return s
}

// String formats the summary for log lines.
func (s Summary) String() string {
	return fmt.Sprintf("%d bodies, %d triangles, bounds [%.2f %.2f %.2f]..[%.2f %.2f %.2f]",
		s.Bodies, s.Triangles,
		s.Min[0], s.Min[1], s.Min[2], s.Max[0], s.Max[1], s.Max[2])
}
