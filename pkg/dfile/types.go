package dfile

import "fmt"

// Kind enumerates the closed set of feature types a D-File may contain.
type Kind int

const (
	KindSketch      Kind = iota // 2D profile on a plane
	KindPad                     // extrusion of a sketch
	KindPocket                  // cut extrusion of a sketch
	KindShaft                   // revolution of a sketch
	KindGroove                  // cut revolution of a sketch
	KindRib                     // sweep of a sketch along a path
	KindPlaneOffset             // reference plane offset from another plane
	KindAxis                    // reference axis
	KindPoint                   // reference point
)

var kindNames = [...]string{
	KindSketch:      "sketch",
	KindPad:         "pad",
	KindPocket:      "pocket",
	KindShaft:       "shaft",
	KindGroove:      "groove",
	KindRib:         "rib",
	KindPlaneOffset: "plane_offset",
	KindAxis:        "axis",
	KindPoint:       "point",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// KindNames returns the wire names of every feature kind in declaration order.
func KindNames() []string {
	names := make([]string, len(kindNames))
	copy(names, kindNames[:])
	return names
}

// MarshalText encodes the kind as its wire name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a wire name into a kind.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("dfile: unknown feature type %q", string(b))
	}
	*k = parsed
	return nil
}

// CADSystem identifies the CAD system a design targets.
type CADSystem string

// Units is the unit system used for every length in a design.
type Units string

// DesignMode tags how the design is meant to be modelled.
type DesignMode string

const (
	CATIAV5 CADSystem = "CATIA_V5"

	UnitsMM Units = "mm"
	UnitsIn Units = "in"

	Parametric DesignMode = "parametric"
)

var (
	cadSystems  = []string{string(CATIAV5)}
	unitSystems = []string{string(UnitsMM), string(UnitsIn)}
	designModes = []string{string(Parametric)}
)

// Meta carries the fixed-choice metadata of a design.
type Meta struct {
	CADSystem  CADSystem  `json:"cad_system"`
	Units      Units      `json:"units"`
	DesignMode DesignMode `json:"design_mode"`
}

// Part describes the part being built.
type Part struct {
	Name       string     `json:"name"`
	Origin     [3]float64 `json:"origin"`
	AxisSystem string     `json:"axis_system"`
}

// ReferenceGeometry names the default planes and axes of the part.
type ReferenceGeometry struct {
	Planes []string `json:"planes"`
	Axes   []string `json:"axes"`
}

// DefaultReferenceGeometry returns the reference geometry used when a
// design does not declare one.
func DefaultReferenceGeometry() ReferenceGeometry {
	return ReferenceGeometry{
		Planes: []string{"XY", "YZ", "ZX"},
		Axes:   []string{"X", "Y", "Z"},
	}
}

// Feature is one construction step. Parameters are kept as an untyped
// mapping; their kind-specific shape is decoded on demand by SketchParams,
// SolidParams and PlaneParams.
type Feature struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"type"`
	SketchPlane *string        `json:"sketch_plane"` // sketch only
	Sketch      *string        `json:"sketch"`       // back-reference to a sketch feature id
	Parameters  map[string]any `json:"parameters"`

	// Index is the feature's position in the record's features list, set by
	// Parse. Violations from on-demand decoding are reported under
	// features[Index] so they share Parse's path form.
	Index int `json:"-"`
}

// Record is a validated Design Record (D-File). It is never mutated after
// Parse returns it; execution order is derived, not stored.
type Record struct {
	Meta              Meta              `json:"meta"`
	Part              Part              `json:"part"`
	ReferenceGeometry ReferenceGeometry `json:"reference_geometry"`
	Features          []Feature         `json:"features"`
	Relations         []any             `json:"relations"`
	Constraints       []any             `json:"constraints"`
	UpdateOrder       []string          `json:"update_order"`
}

// FeatureByID returns the feature with the given id, or nil.
func (r *Record) FeatureByID(id string) *Feature {
	for i := range r.Features {
		if r.Features[i].ID == id {
			return &r.Features[i]
		}
	}
	return nil
}

// Point2 is a point in sketch coordinates.
type Point2 struct {
	X, Y float64
}

// Segment is a straight sketch edge.
type Segment struct {
	Start, End Point2
}
