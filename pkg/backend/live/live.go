// Package live implements a backend that builds real solids on a geometry
// kernel. Sketches become closed 2D profiles, pads extrude them on their
// sketch plane, and Update tessellates the resulting bodies and optionally
// writes the unioned part to disk as STL.
//
// Line chains that do not close are treated as construction geometry and
// dropped with a warning. A sketch whose only geometry is open lines fails
// to close with ErrOpenProfile.
package live

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/kernel"
	"github.com/chazu/vibecad/pkg/kernel/manifold"
	"github.com/chazu/vibecad/pkg/kernel/sdfx"
	"github.com/chazu/vibecad/pkg/tessellate"
)

var (
	_ backend.Backend = (*Backend)(nil)
	_ backend.Outputs = (*Backend)(nil)
)

var (
	// ErrUnknownKernel is returned by New for an unsupported kernel name.
	ErrUnknownKernel = errors.New("unknown geometry kernel")
	// ErrOpenProfile is returned when sketch lines do not form closed loops.
	ErrOpenProfile = errors.New("sketch lines do not form a closed profile")
)

// Kernel names accepted by Config.Kernel. DefaultKernel is used when the
// name is empty.
const (
	DefaultKernel  = "sdfx"
	ManifoldKernel = "manifold"
)

// eps is the distance under which two sketch endpoints are the same point.
const eps = 1e-6

// Config configures a live document.
type Config struct {
	Kernel    string `yaml:"kernel"`
	OutputDir string `yaml:"output_dir"`
	MeshCells int    `yaml:"mesh_cells"`
}

// Backend is a single live document. It is not safe for concurrent use.
type Backend struct {
	k        kernel.Kernel
	log      *zap.Logger
	name     string
	dir      string
	sketches map[string]*sketchRecord
	bodies   []tessellate.Body
	meshes   []*kernel.Mesh
	outputs  []string
}

type sketchRecord struct {
	plane   backend.Plane
	profile kernel.Profile // nil when the sketch has no geometry
}

// New opens a live document named name. It fails when the kernel is unknown
// or the output directory cannot be written.
func New(cfg Config, name string, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var k kernel.Kernel
	switch cfg.Kernel {
	case "", DefaultKernel:
		k = sdfx.NewWithCells(cfg.MeshCells)
	case ManifoldKernel:
		mk, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("live: %w", err)
		}
		k = mk
	default:
		return nil, fmt.Errorf("live: %w %q", ErrUnknownKernel, cfg.Kernel)
	}
	if cfg.OutputDir != "" {
		if err := checkWritable(cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("live: output dir: %w", err)
		}
	}
	return NewWithKernel(k, cfg.OutputDir, name, log), nil
}

// NewWithKernel opens a live document on an existing kernel. An empty dir
// disables STL output.
func NewWithKernel(k kernel.Kernel, dir, name string, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	if name == "" {
		name = "part"
	}
	return &Backend{
		k:        k,
		log:      log.Named("live").With(zap.String("document", name)),
		name:     name,
		dir:      dir,
		sketches: make(map[string]*sketchRecord),
	}
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (b *Backend) Mode() backend.Mode { return backend.ModeReal }

func (b *Backend) ResolvePlane(name string) (backend.Plane, error) {
	return backend.DefaultPlane(name)
}

func (b *Backend) OpenSketch(id string, plane backend.Plane) (backend.Sketch, error) {
	if _, dup := b.sketches[id]; dup {
		return nil, fmt.Errorf("sketch %q already exists", id)
	}
	b.log.Debug("open sketch", zap.String("feature", id), zap.Stringer("plane", plane))
	return &sketch{b: b, id: id, plane: plane}, nil
}

// Pad extrudes a closed sketch along its plane normal. Only the normal
// direction is supported; any other direction is logged and ignored.
func (b *Backend) Pad(id, sketchID string, length float64, direction string) error {
	rec, ok := b.sketches[sketchID]
	if !ok {
		return fmt.Errorf("could not find sketch %s", sketchID)
	}
	if rec.profile == nil {
		return fmt.Errorf("sketch %s has no closed profile", sketchID)
	}
	if !(length > 0) || math.IsInf(length, 0) {
		return fmt.Errorf("pad length must be positive, got %g", length)
	}
	if direction != "" && !strings.EqualFold(direction, "Z") {
		b.log.Warn("custom pad direction not supported, using sketch normal",
			zap.String("feature", id), zap.String("direction", direction))
	}

	solid, err := b.k.Extrude(rec.profile, length, orientation(rec.plane))
	if err != nil {
		return err
	}
	b.bodies = append(b.bodies, tessellate.Body{Name: id, Solid: solid})
	b.log.Info("created pad", zap.String("feature", id), zap.String("sketch", sketchID), zap.Float64("length", length))
	return nil
}

func orientation(p backend.Plane) kernel.Orientation {
	switch p {
	case backend.PlaneYZ:
		return kernel.OrientYZ
	case backend.PlaneZX:
		return kernel.OrientZX
	default:
		return kernel.OrientXY
	}
}

// Update tessellates every body and, when an output directory is set,
// writes the union of all bodies to <dir>/<document>.stl.
func (b *Backend) Update() error {
	if len(b.bodies) == 0 {
		b.log.Info("update: no bodies")
		return nil
	}
	meshes, err := tessellate.Tessellate(b.bodies, b.k)
	if err != nil {
		return err
	}
	b.meshes = meshes
	b.log.Info("update", zap.Stringer("summary", tessellate.Summarize(meshes)))

	if b.dir == "" {
		return nil
	}
	part := b.bodies[0].Solid
	for _, body := range b.bodies[1:] {
		part = b.k.Union(part, body.Solid)
	}
	path := filepath.Join(b.dir, fileName(b.name)+".stl")
	if err := b.k.SaveSTL(part, path); err != nil {
		return err
	}
	b.outputs = append(b.outputs, path)
	b.log.Info("wrote stl", zap.String("path", path))
	return nil
}

// Meshes returns the meshes produced by the last Update.
func (b *Backend) Meshes() []*kernel.Mesh { return b.meshes }

// Outputs returns the files written by Update.
func (b *Backend) Outputs() []string { return b.outputs }

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileName(name string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if s == "" {
		return "part"
	}
	return s
}

// sketch collects primitives until Close builds the profile.
type sketch struct {
	b       *Backend
	id      string
	plane   backend.Plane
	circles []dfile.Circle
	lines   []dfile.Segment
	closed  bool
}

func (s *sketch) AddCircle(c dfile.Circle) error {
	if s.closed {
		return fmt.Errorf("sketch %s is closed", s.id)
	}
	if !(c.Radius > 0) {
		return fmt.Errorf("circle radius must be positive, got %g", c.Radius)
	}
	s.circles = append(s.circles, c)
	return nil
}

func (s *sketch) AddLine(seg dfile.Segment) error {
	if s.closed {
		return fmt.Errorf("sketch %s is closed", s.id)
	}
	if near(seg.Start, seg.End) {
		return fmt.Errorf("line from %v to %v has zero length", seg.Start, seg.End)
	}
	s.lines = append(s.lines, seg)
	return nil
}

// Close chains the lines into loops and registers the sketch profile.
func (s *sketch) Close() error {
	if s.closed {
		return fmt.Errorf("sketch %s is closed", s.id)
	}
	s.closed = true

	loops, err := chain(s.lines)
	if err != nil {
		if len(loops) == 0 && len(s.circles) == 0 {
			return err
		}
		s.b.log.Warn("ignoring open sketch lines", zap.String("feature", s.id), zap.Error(err))
	}
	var profiles []kernel.Profile
	for _, c := range s.circles {
		p, err := s.b.k.Circle(c.Center.X, c.Center.Y, c.Radius)
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
	}
	for _, loop := range loops {
		p, err := s.b.k.Polygon(loop)
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
	}

	rec := &sketchRecord{plane: s.plane}
	if len(profiles) > 0 {
		rec.profile = s.b.k.UnionProfiles(profiles...)
	}
	s.b.sketches[s.id] = rec
	s.b.log.Info("created sketch", zap.String("feature", s.id),
		zap.Int("circles", len(s.circles)), zap.Int("loops", len(loops)))
	return nil
}

// chain joins segments end to end into closed loops. Segments may appear in
// any order and either orientation. Each loop is returned as its vertex list
// without the repeated closing vertex. Chains that do not close are left out
// of the result and reported through the error, which wraps ErrOpenProfile.
func chain(segs []dfile.Segment) ([][][2]float64, error) {
	remaining := append([]dfile.Segment(nil), segs...)
	var loops [][][2]float64
	var open error

	for len(remaining) > 0 {
		first := remaining[0]
		remaining = remaining[1:]
		start, cur := first.Start, first.End
		loop := [][2]float64{{start.X, start.Y}}

		for !near(cur, start) {
			next := -1
			for i, seg := range remaining {
				if near(seg.Start, cur) {
					next = i
					break
				}
				if near(seg.End, cur) {
					remaining[i] = dfile.Segment{Start: seg.End, End: seg.Start}
					next = i
					break
				}
			}
			if next < 0 {
				break
			}
			loop = append(loop, [2]float64{cur.X, cur.Y})
			cur = remaining[next].End
			remaining = append(remaining[:next], remaining[next+1:]...)
		}
		switch {
		case !near(cur, start):
			if open == nil {
				open = fmt.Errorf("%w: no edge continues from (%g, %g)", ErrOpenProfile, cur.X, cur.Y)
			}
		case len(loop) < 3:
			if open == nil {
				open = fmt.Errorf("%w: loop at (%g, %g) has %d edges", ErrOpenProfile, start.X, start.Y, len(loop))
			}
		default:
			loops = append(loops, loop)
		}
	}
	return loops, open
}

func near(a, b dfile.Point2) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps
}
