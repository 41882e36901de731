// Package mock implements a backend that logs every construction call and
// builds nothing. It is the safe default and the fallback when the live
// backend cannot start.
package mock

import (
	"go.uber.org/zap"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/dfile"
)

var _ backend.Backend = (*Backend)(nil)

// Backend is the logging no-op backend.
type Backend struct {
	log *zap.Logger
}

// New returns a mock backend. A nil logger discards output.
func New(log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{log: log.Named("mock")}
}

func (b *Backend) Mode() backend.Mode { return backend.ModeMock }

// ResolvePlane accepts only the default planes, as the live backend does.
func (b *Backend) ResolvePlane(name string) (backend.Plane, error) {
	return backend.DefaultPlane(name)
}

func (b *Backend) OpenSketch(id string, plane backend.Plane) (backend.Sketch, error) {
	b.log.Info("open sketch", zap.String("feature", id), zap.Stringer("plane", plane))
	return &sketch{id: id, log: b.log}, nil
}

func (b *Backend) Pad(id, sketchID string, length float64, direction string) error {
	b.log.Info("pad",
		zap.String("feature", id),
		zap.String("sketch", sketchID),
		zap.Float64("length", length),
		zap.String("direction", direction))
	return nil
}

// Update is a no-op.
func (b *Backend) Update() error {
	b.log.Debug("update")
	return nil
}

type sketch struct {
	id  string
	log *zap.Logger
}

func (s *sketch) AddCircle(c dfile.Circle) error {
	s.log.Info("circle",
		zap.String("sketch", s.id),
		zap.Float64s("center", []float64{c.Center.X, c.Center.Y}),
		zap.Float64("radius", c.Radius))
	return nil
}

func (s *sketch) AddLine(seg dfile.Segment) error {
	s.log.Info("line",
		zap.String("sketch", s.id),
		zap.Float64s("start", []float64{seg.Start.X, seg.Start.Y}),
		zap.Float64s("end", []float64{seg.End.X, seg.End.Y}))
	return nil
}

func (s *sketch) Close() error {
	s.log.Info("close sketch", zap.String("sketch", s.id))
	return nil
}
