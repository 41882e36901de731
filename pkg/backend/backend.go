// Package backend defines the adapter through which the execution engine
// issues geometry construction calls. Two variants exist: mock, which only
// logs, and live, which builds real solids on a geometry kernel.
//
// A Backend is a single mutable document. It is not safe for concurrent use;
// callers open one per run.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/vibecad/pkg/dfile"
)

// Mode selects a backend variant.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeReal Mode = "real"
)

// ParseMode parses a mode name. The empty string selects mock.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMock:
		return ModeMock, nil
	case ModeReal:
		return ModeReal, nil
	default:
		return "", fmt.Errorf("backend: unknown mode %q (want mock or real)", s)
	}
}

// ErrUnknownPlane is returned when a sketch plane name does not resolve.
var ErrUnknownPlane = errors.New("could not resolve plane")

// Plane identifies one of the default reference planes.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneYZ
	PlaneZX
)

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "XY"
	case PlaneYZ:
		return "YZ"
	case PlaneZX:
		return "ZX"
	default:
		return "unknown"
	}
}

// DefaultPlane maps the fixed reference plane names.
func DefaultPlane(name string) (Plane, error) {
	switch name {
	case "XY":
		return PlaneXY, nil
	case "YZ":
		return PlaneYZ, nil
	case "ZX":
		return PlaneZX, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownPlane, name)
	}
}

// Sketch is an open construction context on a plane. Close commits it.
type Sketch interface {
	AddCircle(c dfile.Circle) error
	AddLine(s dfile.Segment) error
	Close() error
}

// Backend is the construction surface the engine drives.
type Backend interface {
	// Mode reports the variant actually servicing calls.
	Mode() Mode
	ResolvePlane(name string) (Plane, error)
	OpenSketch(id string, plane Plane) (Sketch, error)
	// Pad extrudes the closed sketch sketchID by length along direction.
	Pad(id, sketchID string, length float64, direction string) error
	// Update recomputes the document once after all features are dispatched.
	Update() error
}

// Outputs is implemented by backends that write files during Update.
type Outputs interface {
	Outputs() []string
}

// Opener creates a fresh backend for a run. document names the part being
// built.
type Opener interface {
	Open(mode Mode, document string) (Backend, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(mode Mode, document string) (Backend, error)

// Open calls f(mode, document).
func (f OpenerFunc) Open(mode Mode, document string) (Backend, error) { return f(mode, document) }
