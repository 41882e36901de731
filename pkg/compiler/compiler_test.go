package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/backend/live"
	"github.com/chazu/vibecad/pkg/backend/mock"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/engine"
	"github.com/chazu/vibecad/pkg/generator"
)

const cylinderJSON = `{
  "meta": {"cad_system": "CATIA_V5", "units": "mm", "design_mode": "parametric"},
  "part": {"name": "Cylinder", "origin": [0, 0, 0], "axis_system": "default"},
  "features": [
    {"id": "sketch_1", "type": "sketch", "sketch_plane": "XY",
     "parameters": {"circle": {"center": [0, 0], "radius": 10}}},
    {"id": "pad_1", "type": "pad", "sketch": "sketch_1", "parameters": {"length": 50}}
  ],
  "update_order": ["sketch_1", "pad_1"]
}`

func cylinder(t *testing.T) map[string]any {
	t.Helper()
	raw, err := dfile.DecodeRaw([]byte(cylinderJSON))
	require.NoError(t, err)
	return raw
}

// fixed returns a generator that records the prompt and returns raw, err.
func fixed(raw map[string]any, err error, seen *string) generator.Generator {
	return generator.Func(func(_ context.Context, prompt string) (map[string]any, error) {
		if seen != nil {
			*seen = prompt
		}
		return raw, err
	})
}

// ---------------------------------------------------------------------------
// Compile
// ---------------------------------------------------------------------------

func TestCompile_Success(t *testing.T) {
	var seen string
	c := New(Options{Generator: fixed(cylinder(t), nil, &seen)})

	rec, errRec := c.Compile(context.Background(), "  a  cylinder\n\tR10 x 50  ")
	require.Nil(t, errRec)
	require.NotNil(t, rec)
	assert.Equal(t, "Cylinder", rec.Part.Name)
	assert.Equal(t, "a cylinder R10 x 50", seen)
}

func TestCompile_EmptyPromptIsAmbiguous(t *testing.T) {
	called := false
	gen := generator.Func(func(context.Context, string) (map[string]any, error) {
		called = true
		return nil, nil
	})
	c := New(Options{Generator: gen})

	rec, errRec := c.Compile(context.Background(), " \n\t ")
	assert.Nil(t, rec)
	assert.Equal(t, ErrAmbiguousInput, errRec.Code())
	assert.Equal(t, []string{"prompt"}, errRec["missing_parameters"])
	assert.False(t, called)
}

func TestCompile_PassesGeneratorErrorThrough(t *testing.T) {
	ambiguous := map[string]any{"error": "AMBIGUOUS_INPUT", "missing_parameters": []any{"radius"}}
	c := New(Options{Generator: fixed(ambiguous, nil, nil)})

	rec, errRec := c.Compile(context.Background(), "a cylinder")
	assert.Nil(t, rec)
	assert.Equal(t, ErrorRecord(ambiguous), errRec)

	invalid := map[string]any{"error": "INVALID_JSON_OUTPUT", "content": "nope"}
	_, errRec = New(Options{Generator: fixed(invalid, nil, nil)}).Compile(context.Background(), "x")
	assert.Equal(t, ErrInvalidJSON, errRec.Code())
	assert.Equal(t, "nope", errRec["content"])
}

func TestCompile_GeneratorFailure(t *testing.T) {
	c := New(Options{Generator: fixed(nil, errors.New("connection refused"), nil)})
	_, errRec := c.Compile(context.Background(), "a cylinder")
	assert.Equal(t, ErrLLMFailure, errRec.Code())
	assert.Equal(t, "connection refused", errRec["details"])

	_, errRec = New(Options{}).Compile(context.Background(), "a cylinder")
	assert.Equal(t, ErrLLMFailure, errRec.Code())
}

func TestCompile_SchemaValidationFailed(t *testing.T) {
	raw := map[string]any{"meta": map[string]any{"units": "furlongs"}, "features": []any{}}
	c := New(Options{Generator: fixed(raw, nil, nil)})

	rec, errRec := c.Compile(context.Background(), "a cylinder")
	assert.Nil(t, rec)
	require.Equal(t, ErrSchemaValidation, errRec.Code())

	details, ok := errRec["details"].([]dfile.Violation)
	require.True(t, ok, "details = %T", errRec["details"])
	paths := make([]string, len(details))
	for i, v := range details {
		paths[i] = v.Path
	}
	assert.ElementsMatch(t, []string{"meta.units", "part"}, paths)
	assert.Equal(t, raw, errRec["raw_output"])
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_Mock(t *testing.T) {
	c := New(Options{})
	rep := c.Run(context.Background(), cylinder(t), backend.ModeMock)
	assert.Equal(t, engine.StatusSuccess, rep.Status)
	assert.Equal(t, backend.ModeMock, rep.Mode)
	assert.Equal(t, []string{"Executed sketch sketch_1", "Executed pad pad_1"}, rep.Logs)
	assert.Empty(t, rep.Errors)
}

func TestRun_RevalidatesInput(t *testing.T) {
	c := New(Options{})
	raw := cylinder(t)
	delete(raw, "part")

	rep := c.Run(context.Background(), raw, backend.ModeMock)
	assert.Equal(t, engine.StatusError, rep.Status)
	assert.Contains(t, rep.Message, "part")
}

func TestRun_Containment(t *testing.T) {
	raw := cylinder(t)
	raw["features"].([]any)[1].(map[string]any)["sketch"] = "sketch_2"

	rep := New(Options{}).Run(context.Background(), raw, backend.ModeMock)
	assert.Equal(t, engine.StatusCompletedWithErrors, rep.Status)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "pad_1")
}

func TestRun_LogsDesignIssues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	raw := cylinder(t)
	raw["update_order"] = []any{"pad_1", "sketch_1"}

	rep := New(Options{Logger: zap.New(core)}).Run(context.Background(), raw, backend.ModeMock)
	assert.Equal(t, engine.StatusCompletedWithErrors, rep.Status)

	entries := logs.FilterMessage("design issue").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "FORWARD_REFERENCE", entries[0].ContextMap()["code"])
	assert.Equal(t, "pad_1", entries[0].ContextMap()["feature"])
}

func TestRun_FallsBackToMock(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(Options{Live: live.Config{Kernel: "catia"}, Logger: zap.New(core)})

	rep := c.Run(context.Background(), cylinder(t), backend.ModeReal)
	assert.Equal(t, engine.StatusSuccess, rep.Status)
	assert.Equal(t, backend.ModeMock, rep.Mode)
	require.NotEmpty(t, rep.Logs)
	assert.True(t, strings.HasPrefix(rep.Logs[0], "Backend real unavailable"), rep.Logs[0])
	assert.Equal(t, 1, logs.FilterMessage("backend init failed, falling back to mock").Len())
}

func TestOpenBackend_FallbackIsUsable(t *testing.T) {
	c := New(Options{Live: live.Config{OutputDir: "/dev/null/out"}})
	b, note := c.OpenBackend(backend.ModeReal, "p")
	require.NotNil(t, b)
	assert.NotEmpty(t, note)
	assert.Equal(t, backend.ModeMock, b.Mode())
	_, err := b.ResolvePlane("XY")
	assert.NoError(t, err)
}

func TestRun_Live(t *testing.T) {
	dir := t.TempDir()
	c := New(Options{Live: live.Config{MeshCells: 40, OutputDir: dir}})

	rep := c.Run(context.Background(), cylinder(t), backend.ModeReal)
	require.Equal(t, engine.StatusSuccess, rep.Status, "errors: %v", rep.Errors)
	assert.Equal(t, backend.ModeReal, rep.Mode)
	require.Len(t, rep.Outputs, 1)
	assert.Equal(t, filepath.Join(dir, "Cylinder.stl"), rep.Outputs[0])
	_, err := os.Stat(rep.Outputs[0])
	assert.NoError(t, err)
}

// slowBackend blocks in OpenSketch until released.
type slowBackend struct {
	*mock.Backend
	release chan struct{}
}

func (s *slowBackend) OpenSketch(id string, p backend.Plane) (backend.Sketch, error) {
	<-s.release
	return s.Backend.OpenSketch(id, p)
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := New(Options{
		RunTimeout: 20 * time.Millisecond,
		Opener: backend.OpenerFunc(func(backend.Mode, string) (backend.Backend, error) {
			return &slowBackend{Backend: mock.New(nil), release: release}, nil
		}),
	})

	rep := c.Run(context.Background(), cylinder(t), backend.ModeMock)
	assert.Equal(t, engine.StatusError, rep.Status)
	assert.Equal(t, "execution timed out after 20ms", rep.Message)
}

// leakyBackend panics outside any feature boundary.
type leakyBackend struct{ *mock.Backend }

func (leakyBackend) Outputs() []string { panic("outputs exploded") }

func TestRun_RecoversEscapingPanic(t *testing.T) {
	c := New(Options{Opener: backend.OpenerFunc(func(backend.Mode, string) (backend.Backend, error) {
		return leakyBackend{mock.New(nil)}, nil
	})})

	rep := c.Run(context.Background(), cylinder(t), backend.ModeMock)
	assert.Equal(t, engine.StatusError, rep.Status)
	assert.Contains(t, rep.Message, "outputs exploded")
}

func TestRun_MockIdempotent(t *testing.T) {
	c := New(Options{})
	raw := cylinder(t)
	raw["features"] = append(raw["features"].([]any), map[string]any{
		"id": "pocket_1", "type": "pocket", "sketch": "sketch_1", "parameters": map[string]any{"depth": 5},
	})
	raw["update_order"] = append(raw["update_order"].([]any), "pocket_1")

	first := c.Run(context.Background(), raw, backend.ModeMock)
	second := c.Run(context.Background(), raw, backend.ModeMock)
	assert.Equal(t, first.Logs, second.Logs)
	assert.Equal(t, first.Outcomes, second.Outcomes)
	assert.Equal(t, engine.StatusCompletedWithErrors, first.Status)
}

func TestNormalizePrompt(t *testing.T) {
	assert.Equal(t, "a b c", NormalizePrompt("\n a   b\t\tc \n"))
	assert.Equal(t, "", NormalizePrompt("   "))
}
