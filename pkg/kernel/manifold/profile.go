// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library. When the "manifold" build tag is not set, New returns
// ErrUnavailable and the live backend falls back accordingly.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/vibecad/pkg/kernel"
)

// ErrUnavailable is returned by New when the binary was built without the
// manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// CircleSegments is the number of edges a sketch circle is polygonized into.
const CircleSegments = 64

// profile is a set of counter-clockwise loops. Manifold extrudes polygon
// sets directly, so profiles stay in Go until extrusion.
type profile struct {
	loops [][][2]float64
}

var _ kernel.Profile = (*profile)(nil)

func (p *profile) Bounds() (min, max [2]float64) {
	first := true
	for _, loop := range p.loops {
		for _, v := range loop {
			if first {
				min, max = v, v
				first = false
				continue
			}
			for i := 0; i < 2; i++ {
				min[i] = math.Min(min[i], v[i])
				max[i] = math.Max(max[i], v[i])
			}
		}
	}
	return min, max
}

func newCircle(cx, cy, radius float64) (*profile, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("manifold: circle radius must be positive, got %g", radius)
	}
	loop := make([][2]float64, CircleSegments)
	for i := range loop {
		a := 2 * math.Pi * float64(i) / CircleSegments
		loop[i] = [2]float64{cx + radius*math.Cos(a), cy + radius*math.Sin(a)}
	}
	return &profile{loops: [][][2]float64{loop}}, nil
}

func newPolygon(vertices [][2]float64) (*profile, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("manifold: polygon needs at least 3 vertices, got %d", len(vertices))
	}
	loop := make([][2]float64, len(vertices))
	copy(loop, vertices)
	if signedArea(loop) < 0 {
		for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
			loop[i], loop[j] = loop[j], loop[i]
		}
	}
	return &profile{loops: [][][2]float64{loop}}, nil
}

func unionProfiles(profiles ...kernel.Profile) *profile {
	out := &profile{}
	for _, p := range profiles {
		if mp, ok := p.(*profile); ok && mp != nil {
			out.loops = append(out.loops, mp.loops...)
		}
	}
	return out
}

// signedArea is positive for counter-clockwise loops.
func signedArea(loop [][2]float64) float64 {
	var a float64
	for i := range loop {
		j := (i + 1) % len(loop)
		a += loop[i][0]*loop[j][1] - loop[j][0]*loop[i][1]
	}
	return a / 2
}

// rotations returns the Euler rotations, in degrees and in application
// order, that carry an extrusion along +Z onto the plane orientation o.
func rotations(o kernel.Orientation) ([][3]float64, error) {
	switch o {
	case kernel.OrientXY:
		return nil, nil
	case kernel.OrientYZ:
		return [][3]float64{{90, 0, 0}, {0, 0, 90}}, nil
	case kernel.OrientZX:
		return [][3]float64{{0, 0, -90}, {-90, 0, 0}}, nil
	default:
		return nil, fmt.Errorf("manifold: unknown orientation %d", o)
	}
}

// triangles converts a mesh into sdfx triangles for STL output.
func triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	vert := func(i uint32) v3.Vec {
		return v3.Vec{
			X: float64(m.Vertices[i*3]),
			Y: float64(m.Vertices[i*3+1]),
			Z: float64(m.Vertices[i*3+2]),
		}
	}
	out := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for t := 0; t+2 < len(m.Indices); t += 3 {
		out = append(out, &sdf.Triangle3{vert(m.Indices[t]), vert(m.Indices[t+1]), vert(m.Indices[t+2])})
	}
	return out
}
