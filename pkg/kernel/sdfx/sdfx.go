// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/vibecad/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// sdfxProfile wraps an sdf.SDF2 to implement kernel.Profile.
type sdfxProfile struct {
	s sdf.SDF2
}

// Bounds returns the axis-aligned bounding rectangle.
func (p *sdfxProfile) Bounds() (min, max [2]float64) {
	bb := p.s.BoundingBox()
	return [2]float64{bb.Min.X, bb.Min.Y}, [2]float64{bb.Max.X, bb.Max.Y}
}

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel with the default mesh resolution.
func New() *SdfxKernel {
	return &SdfxKernel{cells: DefaultMeshCells}
}

// NewWithCells returns a kernel that tessellates with the given number of
// marching cubes cells along the longest axis.
func NewWithCells(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

func unwrapProfile(p kernel.Profile) sdf.SDF2 {
	return p.(*sdfxProfile).s
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Circle creates a disc centered at (cx, cy).
func (k *SdfxKernel) Circle(cx, cy, radius float64) (kernel.Profile, error) {
	s, err := sdf.Circle2D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: circle: %w", err)
	}
	if cx != 0 || cy != 0 {
		s = sdf.Transform2D(s, sdf.Translate2d(v2.Vec{X: cx, Y: cy}))
	}
	return &sdfxProfile{s: s}, nil
}

// Polygon creates a closed polygon from its vertices. The closing edge from
// the last vertex back to the first is implicit.
func (k *SdfxKernel) Polygon(vertices [][2]float64) (kernel.Profile, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("sdfx: polygon needs at least 3 vertices, got %d", len(vertices))
	}
	pts := make([]v2.Vec, len(vertices))
	for i, v := range vertices {
		pts[i] = v2.Vec{X: v[0], Y: v[1]}
	}
	s, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, fmt.Errorf("sdfx: polygon: %w", err)
	}
	return &sdfxProfile{s: s}, nil
}

// UnionProfiles merges profiles into one region.
func (k *SdfxKernel) UnionProfiles(profiles ...kernel.Profile) kernel.Profile {
	if len(profiles) == 1 {
		return profiles[0]
	}
	ss := make([]sdf.SDF2, len(profiles))
	for i, p := range profiles {
		ss[i] = unwrapProfile(p)
	}
	return &sdfxProfile{s: sdf.Union2D(ss...)}
}

// Extrude sweeps the profile along the plane normal from 0 to length.
// sdf.Extrude3D is centered on the sketch plane, so the result is shifted by
// half the length before being oriented.
func (k *SdfxKernel) Extrude(p kernel.Profile, length float64, o kernel.Orientation) (kernel.Solid, error) {
	if length <= 0 {
		return nil, fmt.Errorf("sdfx: extrude length must be positive, got %g", length)
	}
	orient, err := orientation(o)
	if err != nil {
		return nil, err
	}
	s := sdf.Extrude3D(unwrapProfile(p), length)
	m := orient.Mul(sdf.Translate3d(v3.Vec{X: 0, Y: 0, Z: length / 2}))
	return wrap(sdf.Transform3D(s, m)), nil
}

// orientation returns the rotation taking sketch space to world space.
func orientation(o kernel.Orientation) (sdf.M44, error) {
	const quarter = math.Pi / 2
	switch o {
	case kernel.OrientXY:
		return sdf.Identity3d(), nil
	case kernel.OrientYZ:
		// X->Y, Y->Z, Z->X
		return sdf.RotateZ(quarter).Mul(sdf.RotateX(quarter)), nil
	case kernel.OrientZX:
		// X->Z, Y->X, Z->Y
		return sdf.RotateX(-quarter).Mul(sdf.RotateZ(-quarter)), nil
	default:
		return sdf.M44{}, errors.New("sdfx: unknown orientation " + o.String())
	}
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// SaveSTL tessellates the solid and writes it to path as binary STL.
func (k *SdfxKernel) SaveSTL(s kernel.Solid, path string) error {
	triangles := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))
	if err := render.SaveSTL(path, triangles); err != nil {
		return fmt.Errorf("sdfx: save stl %s: %w", path, err)
	}
	return nil
}
