//go:build manifold

package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/deadsy/sdfx/render"

	"github.com/chazu/vibecad/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Circle returns a polygonized circle profile.
func (k *ManifoldKernel) Circle(cx, cy, radius float64) (kernel.Profile, error) {
	return newCircle(cx, cy, radius)
}

// Polygon returns a closed polygon profile.
func (k *ManifoldKernel) Polygon(vertices [][2]float64) (kernel.Profile, error) {
	return newPolygon(vertices)
}

// UnionProfiles merges profiles into one polygon set.
func (k *ManifoldKernel) UnionProfiles(profiles ...kernel.Profile) kernel.Profile {
	return unionProfiles(profiles...)
}

// polygons copies a profile into a C polygon set. The caller deletes it.
func polygons(p *profile) *C.ManifoldPolygons {
	simple := make([]*C.ManifoldSimplePolygon, len(p.loops))
	for i, loop := range p.loops {
		pts := (*C.ManifoldVec2)(C.malloc(C.size_t(len(loop)) * C.size_t(unsafe.Sizeof(C.ManifoldVec2{}))))
		view := unsafe.Slice(pts, len(loop))
		for j, v := range loop {
			view[j] = C.ManifoldVec2{x: C.double(v[0]), y: C.double(v[1])}
		}
		simple[i] = C.manifold_simple_polygon(C.manifold_alloc_simple_polygon(), pts, C.size_t(len(loop)))
		C.free(unsafe.Pointer(pts))
	}

	arr := (**C.ManifoldSimplePolygon)(C.malloc(C.size_t(len(simple)) * C.size_t(unsafe.Sizeof(simple[0]))))
	copy(unsafe.Slice(arr, len(simple)), simple)
	ps := C.manifold_polygons(C.manifold_alloc_polygons(), arr, C.size_t(len(simple)))
	C.free(unsafe.Pointer(arr))
	for _, sp := range simple {
		C.manifold_delete_simple_polygon(sp)
	}
	return ps
}

// Extrude sweeps p along +Z by length, then rotates the result onto the
// sketch plane.
func (k *ManifoldKernel) Extrude(p kernel.Profile, length float64, o kernel.Orientation) (kernel.Solid, error) {
	mp, ok := p.(*profile)
	if !ok || mp == nil || len(mp.loops) == 0 {
		return nil, fmt.Errorf("manifold: extrude: empty or foreign profile")
	}
	if length <= 0 {
		return nil, fmt.Errorf("manifold: extrude length must be positive, got %g", length)
	}
	steps, err := rotations(o)
	if err != nil {
		return nil, err
	}

	ps := polygons(mp)
	defer C.manifold_delete_polygons(ps)
	s := newSolid(C.manifold_extrude(C.manifold_alloc_manifold(), ps,
		C.double(length),
		C.int(0),    // slices
		C.double(0), // twist
		C.double(1), C.double(1), // scale
	))
	for _, r := range steps {
		s = k.rotate(s, r[0], r[1], r[2])
	}
	return s, nil
}

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa := a.(*manifoldSolid)
	sb := b.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_union(alloc, sa.ptr, sb.ptr)
	return newSolid(ptr)
}

// rotate rotates the solid by Euler angles (in degrees) around the X, Y, Z axes.
func (k *ManifoldKernel) rotate(s *manifoldSolid, x, y, z float64) *manifoldSolid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_rotate(alloc, s.ptr,
		C.double(x), C.double(y), C.double(z),
	)
	return newSolid(ptr)
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. Vertex positions and normals are interleaved in MeshGL; this
// method separates them into the kernel.Mesh flat-array layout.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms := s.(*manifoldSolid)

	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))

	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// The first 3 properties are position; normals, when present, follow.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	vertices := make([]float32, numVert*3)
	var normals []float32
	hasNormals := numProp >= 6
	if hasNormals {
		normals = make([]float32, numVert*3)
	}

	for i := 0; i < numVert; i++ {
		base := i * numProp
		vertices[i*3+0] = propData[base+0]
		vertices[i*3+1] = propData[base+1]
		vertices[i*3+2] = propData[base+2]
		if hasNormals {
			normals[i*3+0] = propData[base+3]
			normals[i*3+1] = propData[base+4]
			normals[i*3+2] = propData[base+5]
		}
	}

	if !hasNormals {
		normals = computeNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}

	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}

	return mesh, nil
}

// SaveSTL meshes the solid and writes it to path as binary STL.
func (k *ManifoldKernel) SaveSTL(s kernel.Solid, path string) error {
	m, err := k.ToMesh(s)
	if err != nil {
		return err
	}
	if err := render.SaveSTL(path, triangles(m)); err != nil {
		return fmt.Errorf("manifold: save stl %s: %w", path, err)
	}
	return nil
}

// computeNormals averages the face normals of the triangles incident on
// each vertex.
func computeNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]float32, len(vertices))

	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]

		ax, ay, az := float64(vertices[i0*3]), float64(vertices[i0*3+1]), float64(vertices[i0*3+2])
		bx, by, bz := float64(vertices[i1*3]), float64(vertices[i1*3+1]), float64(vertices[i1*3+2])
		cx, cy, cz := float64(vertices[i2*3]), float64(vertices[i2*3+1]), float64(vertices[i2*3+2])

		e1x, e1y, e1z := bx-ax, by-ay, bz-az
		e2x, e2y, e2z := cx-ax, cy-ay, cz-az

		nx := float32(e1y*e2z - e1z*e2y)
		ny := float32(e1z*e2x - e1x*e2z)
		nz := float32(e1x*e2y - e1y*e2x)

		for _, idx := range []uint32{i0, i1, i2} {
			normals[idx*3+0] += nx
			normals[idx*3+1] += ny
			normals[idx*3+2] += nz
		}
	}

	for i := 0; i+2 < len(normals); i += 3 {
		nx, ny, nz := float64(normals[i]), float64(normals[i+1]), float64(normals[i+2])
		if l := math.Sqrt(nx*nx + ny*ny + nz*nz); l > 1e-12 {
			normals[i] = float32(nx / l)
			normals[i+1] = float32(ny / l)
			normals[i+2] = float32(nz / l)
		}
	}
	return normals
}
