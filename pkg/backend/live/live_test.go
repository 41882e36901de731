package live

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/kernel/manifold"
)

func seg(x1, y1, x2, y2 float64) dfile.Segment {
	return dfile.Segment{Start: dfile.Point2{X: x1, Y: y1}, End: dfile.Point2{X: x2, Y: y2}}
}

func newBackend(t *testing.T, dir string) *Backend {
	t.Helper()
	b, err := New(Config{MeshCells: 40, OutputDir: dir}, "Test Part", zap.NewNop())
	require.NoError(t, err)
	return b
}

func TestNewRejectsUnknownKernel(t *testing.T) {
	_, err := New(Config{Kernel: "opencascade"}, "p", nil)
	assert.True(t, errors.Is(err, ErrUnknownKernel))
}

func TestNewManifoldKernel(t *testing.T) {
	b, err := New(Config{Kernel: ManifoldKernel}, "p", nil)
	if errors.Is(err, manifold.ErrUnavailable) {
		assert.Nil(t, b)
		return
	}
	require.NoError(t, err)
	assert.NotNil(t, b.k)
}

func TestNewRejectsUnusableOutputDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(Config{OutputDir: filepath.Join(file, "out")}, "p", nil)
	assert.Error(t, err)
}

func TestChainRectangleAnyOrder(t *testing.T) {
	loops, err := chain([]dfile.Segment{
		seg(5, 2, -5, 2),   // top
		seg(-5, -2, 5, -2), // bottom
		seg(-5, -2, -5, 2), // left, reversed
		seg(5, -2, 5, 2),   // right
	})
	require.NoError(t, err)
	require.Len(t, loops, 1)
	assert.Len(t, loops[0], 4)
}

func TestChainTwoLoops(t *testing.T) {
	loops, err := chain([]dfile.Segment{
		seg(0, 0, 1, 0), seg(1, 0, 0, 1), seg(0, 1, 0, 0),
		seg(5, 5, 6, 5), seg(6, 5, 5, 6), seg(5, 6, 5, 5),
	})
	require.NoError(t, err)
	assert.Len(t, loops, 2)
}

func TestChainOpen(t *testing.T) {
	_, err := chain([]dfile.Segment{seg(0, 0, 10, 0)})
	assert.True(t, errors.Is(err, ErrOpenProfile))

	_, err = chain([]dfile.Segment{seg(0, 0, 10, 0), seg(10, 0, 0, 0)})
	assert.True(t, errors.Is(err, ErrOpenProfile), "a back-and-forth pair encloses no area")
}

func TestChainKeepsClosedLoopsBesideOpenChain(t *testing.T) {
	loops, err := chain([]dfile.Segment{
		seg(20, 0, 30, 0),
		seg(0, 0, 1, 0), seg(1, 0, 0, 1), seg(0, 1, 0, 0),
	})
	assert.True(t, errors.Is(err, ErrOpenProfile))
	require.Len(t, loops, 1)
	assert.Len(t, loops[0], 3)
}

func TestSketchConstructionLineIsIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := NewWithKernel(newBackend(t, "").k, "", "p", zap.New(core))

	sk, err := b.OpenSketch("s", backend.PlaneXY)
	require.NoError(t, err)
	require.NoError(t, sk.AddCircle(dfile.Circle{Radius: 5}))
	require.NoError(t, sk.AddLine(seg(-5, 0, 5, 0)))
	require.NoError(t, sk.Close())

	require.NoError(t, b.Pad("pad_1", "s", 2, "Z"))
	entries := logs.FilterMessage("ignoring open sketch lines").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "s", entries[0].ContextMap()["feature"])
}

func TestSketchPadUpdate(t *testing.T) {
	dir := t.TempDir()
	b := newBackend(t, dir)

	sk, err := b.OpenSketch("sketch_1", backend.PlaneXY)
	require.NoError(t, err)
	require.NoError(t, sk.AddCircle(dfile.Circle{Radius: 10}))
	require.NoError(t, sk.Close())

	require.NoError(t, b.Pad("pad_1", "sketch_1", 50, "Z"))
	require.NoError(t, b.Update())

	meshes := b.Meshes()
	require.Len(t, meshes, 1)
	assert.Equal(t, "pad_1", meshes[0].Body)
	assert.False(t, meshes[0].IsEmpty())

	require.Len(t, b.Outputs(), 1)
	assert.Equal(t, filepath.Join(dir, "Test_Part.stl"), b.Outputs()[0])
	info, err := os.Stat(b.Outputs()[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(84))
}

func TestPadErrors(t *testing.T) {
	b := newBackend(t, "")

	assert.ErrorContains(t, b.Pad("pad_1", "missing", 5, "Z"), "could not find sketch missing")

	empty, err := b.OpenSketch("empty", backend.PlaneXY)
	require.NoError(t, err)
	require.NoError(t, empty.Close())
	assert.ErrorContains(t, b.Pad("pad_2", "empty", 5, "Z"), "no closed profile")

	sk, err := b.OpenSketch("disc", backend.PlaneYZ)
	require.NoError(t, err)
	require.NoError(t, sk.AddCircle(dfile.Circle{Radius: 1}))
	require.NoError(t, sk.Close())
	assert.ErrorContains(t, b.Pad("pad_3", "disc", 0, "Z"), "must be positive")
	assert.ErrorContains(t, b.Pad("pad_4", "disc", -2, "Z"), "must be positive")
}

func TestPadCustomDirectionIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := NewWithKernel(newBackend(t, "").k, "", "p", zap.New(core))

	sk, _ := b.OpenSketch("s", backend.PlaneZX)
	require.NoError(t, sk.AddCircle(dfile.Circle{Radius: 2}))
	require.NoError(t, sk.Close())
	require.NoError(t, b.Pad("pad_1", "s", 3, "X"))

	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warn, 1)
	assert.Equal(t, "X", warn[0].ContextMap()["direction"])
}

func TestSketchOpenChainFailsOnClose(t *testing.T) {
	b := newBackend(t, "")
	sk, err := b.OpenSketch("sketch_1", backend.PlaneXY)
	require.NoError(t, err)
	require.NoError(t, sk.AddLine(seg(0, 0, 10, 0)))

	err = sk.Close()
	assert.True(t, errors.Is(err, ErrOpenProfile))
	assert.Error(t, b.Pad("pad_1", "sketch_1", 5, "Z"), "a failed sketch is not registered")
}

func TestSketchRejectsBadGeometry(t *testing.T) {
	b := newBackend(t, "")
	sk, err := b.OpenSketch("s", backend.PlaneXY)
	require.NoError(t, err)
	assert.Error(t, sk.AddCircle(dfile.Circle{Radius: 0}))
	assert.Error(t, sk.AddLine(seg(1, 1, 1, 1)))
	require.NoError(t, sk.Close())
	assert.Error(t, sk.Close())
	assert.Error(t, sk.AddCircle(dfile.Circle{Radius: 1}))

	_, err = b.OpenSketch("s", backend.PlaneXY)
	assert.ErrorContains(t, err, "already exists")
}

func TestUpdateWithoutBodies(t *testing.T) {
	b := newBackend(t, t.TempDir())
	require.NoError(t, b.Update())
	assert.Empty(t, b.Outputs())
	assert.Empty(t, b.Meshes())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Flange_v2", fileName("Flange v2"))
	assert.Equal(t, "part", fileName("../.."))
	assert.Equal(t, "a_b", fileName("a/b"))
}
