// Package kernel defines the abstract geometry kernel used by the live
// backend. A kernel turns closed 2D sketch profiles into solids and solids
// into triangle meshes. Implementations (sdfx) sit behind this interface so
// the backend never touches a concrete geometry library.
package kernel

// Profile is an opaque handle to a closed 2D region in sketch coordinates.
type Profile interface {
	// Bounds returns the axis-aligned bounding rectangle.
	Bounds() (min, max [2]float64)
}

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Orientation places sketch coordinates (u, v) and the sketch normal n in
// world space. The three values correspond to the default reference planes.
type Orientation int

const (
	OrientXY Orientation = iota // (u, v, n) -> (X, Y, Z)
	OrientYZ                    // (u, v, n) -> (Y, Z, X)
	OrientZX                    // (u, v, n) -> (Z, X, Y)
)

func (o Orientation) String() string {
	switch o {
	case OrientXY:
		return "XY"
	case OrientYZ:
		return "YZ"
	case OrientZX:
		return "ZX"
	default:
		return "unknown"
	}
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Profiles
	Circle(cx, cy, radius float64) (Profile, error)
	Polygon(vertices [][2]float64) (Profile, error)
	UnionProfiles(profiles ...Profile) Profile

	// Extrude sweeps a profile along its plane normal by length, starting
	// at the sketch plane.
	Extrude(p Profile, length float64, o Orientation) (Solid, error)
	Union(a, b Solid) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
	SaveSTL(s Solid, path string) error
}
