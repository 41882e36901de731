package dfile

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sketch primitives
// ---------------------------------------------------------------------------

// Circle is a full circle in sketch coordinates.
type Circle struct {
	Center Point2
	Radius float64
}

// Line is a single straight edge.
type Line struct {
	Start Point2
	End   Point2
}

// Rectangle is an axis-aligned rectangle given either as center+width+height
// or as two opposite corners. The two forms are mutually exclusive.
type Rectangle struct {
	Center  *Point2
	Width   *float64
	Height  *float64
	Corner1 *Point2
	Corner2 *Point2
}

var (
	ErrIncompleteRectangle = errors.New("rectangle needs center+width+height or corner1+corner2")
	ErrAmbiguousRectangle  = errors.New("rectangle mixes center/size and corner forms")
	ErrDegenerateRectangle = errors.New("rectangle has zero area")
)

// Edges decomposes the rectangle into its four boundary segments, walking
// counter-clockwise from the minimum corner: bottom, right, top, left.
// Both representations of the same rectangle yield identical segments.
func (r Rectangle) Edges() ([4]Segment, error) {
	centerForm := r.Center != nil || r.Width != nil || r.Height != nil
	cornerForm := r.Corner1 != nil || r.Corner2 != nil

	var xmin, ymin, xmax, ymax float64
	switch {
	case centerForm && cornerForm:
		return [4]Segment{}, ErrAmbiguousRectangle
	case r.Center != nil && r.Width != nil && r.Height != nil:
		w, h := *r.Width, *r.Height
		if w <= 0 || h <= 0 {
			return [4]Segment{}, fmt.Errorf("%w: width %g, height %g", ErrDegenerateRectangle, w, h)
		}
		xmin, xmax = r.Center.X-w/2, r.Center.X+w/2
		ymin, ymax = r.Center.Y-h/2, r.Center.Y+h/2
	case r.Corner1 != nil && r.Corner2 != nil:
		xmin, xmax = min(r.Corner1.X, r.Corner2.X), max(r.Corner1.X, r.Corner2.X)
		ymin, ymax = min(r.Corner1.Y, r.Corner2.Y), max(r.Corner1.Y, r.Corner2.Y)
		if xmin == xmax || ymin == ymax {
			return [4]Segment{}, ErrDegenerateRectangle
		}
	default:
		return [4]Segment{}, ErrIncompleteRectangle
	}

	bl := Point2{X: xmin, Y: ymin}
	br := Point2{X: xmax, Y: ymin}
	tr := Point2{X: xmax, Y: ymax}
	tl := Point2{X: xmin, Y: ymax}
	return [4]Segment{
		{Start: bl, End: br},
		{Start: br, End: tr},
		{Start: tr, End: tl},
		{Start: tl, End: bl},
	}, nil
}

// SketchParams holds the primitives present in a sketch feature. Any subset
// may be present.
type SketchParams struct {
	Circle    *Circle
	Line      *Line
	Rectangle *Rectangle
}

// Empty reports whether the sketch has no primitives.
func (s SketchParams) Empty() bool {
	return s.Circle == nil && s.Line == nil && s.Rectangle == nil
}

// SketchParams decodes the feature's parameters as sketch primitives.
// The error, if any, is a *ValidationError.
func (f Feature) SketchParams() (SketchParams, error) {
	p := &parser{}
	path := f.paramPath()
	var sp SketchParams

	if m, ok := p.object(f.Parameters, path, "circle", false); ok {
		cpath := join(path, "circle")
		center := p.point(m, cpath, "center", true)
		radius := p.number(m, cpath, "radius", true)
		if radius != nil && *radius <= 0 {
			p.add(join(cpath, "radius"), ReasonInvalid, "radius must be positive, got %g", *radius)
		}
		if center != nil && radius != nil {
			sp.Circle = &Circle{Center: *center, Radius: *radius}
		}
	}

	if m, ok := p.object(f.Parameters, path, "line", false); ok {
		lpath := join(path, "line")
		start := p.point(m, lpath, "start", true)
		end := p.point(m, lpath, "end", true)
		if start != nil && end != nil {
			sp.Line = &Line{Start: *start, End: *end}
		}
	}

	if m, ok := p.object(f.Parameters, path, "rectangle", false); ok {
		rpath := join(path, "rectangle")
		sp.Rectangle = &Rectangle{
			Center:  p.point(m, rpath, "center", false),
			Width:   p.number(m, rpath, "width", false),
			Height:  p.number(m, rpath, "height", false),
			Corner1: p.point(m, rpath, "corner1", false),
			Corner2: p.point(m, rpath, "corner2", false),
		}
	}

	return sp, p.err()
}

// ---------------------------------------------------------------------------
// Solid features
// ---------------------------------------------------------------------------

// SolidParams holds the parameters of pad/pocket-like features.
type SolidParams struct {
	Length    *float64
	Depth     *float64 // alternative to Length
	Direction string
}

// Extent returns the extrusion distance, preferring length over depth.
func (s SolidParams) Extent() (float64, bool) {
	switch {
	case s.Length != nil:
		return *s.Length, true
	case s.Depth != nil:
		return *s.Depth, true
	default:
		return 0, false
	}
}

// SolidParams decodes the feature's parameters as solid parameters.
// Direction defaults to "Z".
func (f Feature) SolidParams() (SolidParams, error) {
	p := &parser{}
	path := f.paramPath()
	sp := SolidParams{
		Length:    p.number(f.Parameters, path, "length", false),
		Depth:     p.number(f.Parameters, path, "depth", false),
		Direction: p.str(f.Parameters, path, "direction", false, "Z"),
	}
	return sp, p.err()
}

// ---------------------------------------------------------------------------
// Reference planes
// ---------------------------------------------------------------------------

// PlaneParams holds the parameters of a plane_offset feature.
type PlaneParams struct {
	Reference string
	Offset    float64
}

// PlaneParams decodes the feature's parameters as an offset plane.
func (f Feature) PlaneParams() (PlaneParams, error) {
	p := &parser{}
	path := f.paramPath()
	var pp PlaneParams
	pp.Reference = p.str(f.Parameters, path, "reference", true, "")
	if off := p.number(f.Parameters, path, "offset", true); off != nil {
		pp.Offset = *off
	}
	return pp, p.err()
}

func (f Feature) paramPath() string {
	return join(index("features", f.Index), "parameters")
}
