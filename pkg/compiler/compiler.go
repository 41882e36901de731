// Package compiler is the pipeline front door. Compile turns a prompt into a
// validated D-File through a generator; Run executes a D-File on a freshly
// opened backend and always returns a report.
package compiler

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/backend/live"
	"github.com/chazu/vibecad/pkg/backend/mock"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/engine"
	"github.com/chazu/vibecad/pkg/generator"
	"github.com/chazu/vibecad/pkg/graph"
)

// DefaultRunTimeout bounds a single Run.
const DefaultRunTimeout = 2 * time.Minute

// Options configures a Compiler.
type Options struct {
	Generator generator.Generator
	// Live configures documents opened for ModeReal.
	Live live.Config
	// Opener overrides backend construction. When nil, mock and live
	// backends are built from Live.
	Opener     backend.Opener
	RunTimeout time.Duration
	Logger     *zap.Logger
}

// Compiler compiles prompts and runs D-Files. It holds no per-run state and
// is safe for concurrent use.
type Compiler struct {
	gen        generator.Generator
	engine     *engine.Engine
	opener     backend.Opener
	runTimeout time.Duration
	log        *zap.Logger
}

// New creates a Compiler.
func New(opts Options) *Compiler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Compiler{
		gen:        opts.Generator,
		engine:     engine.New(log),
		opener:     opts.Opener,
		runTimeout: opts.RunTimeout,
		log:        log.Named("compiler"),
	}
	if c.runTimeout <= 0 {
		c.runTimeout = DefaultRunTimeout
	}
	if c.opener == nil {
		c.opener = backend.OpenerFunc(func(mode backend.Mode, document string) (backend.Backend, error) {
			if mode == backend.ModeReal {
				return live.New(opts.Live, document, log)
			}
			return mock.New(log), nil
		})
	}
	return c
}

// NormalizePrompt trims the prompt and collapses internal whitespace runs.
func NormalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(prompt), " ")
}

// Compile turns a prompt into a validated D-File. Exactly one of the results
// is non-nil.
func (c *Compiler) Compile(ctx context.Context, prompt string) (*dfile.Record, ErrorRecord) {
	clean := NormalizePrompt(prompt)
	if clean == "" {
		return nil, newErrorRecord(ErrAmbiguousInput, "missing_parameters", []string{"prompt"})
	}
	c.log.Info("compiling prompt", zap.String("prompt", clean))

	if c.gen == nil {
		return nil, newErrorRecord(ErrLLMFailure, "details", generator.ErrNoProvider.Error())
	}
	raw, err := c.gen.Generate(ctx, clean)
	if err != nil {
		c.log.Error("generator failed", zap.Error(err))
		return nil, newErrorRecord(ErrLLMFailure, "details", err.Error())
	}
	if code := generator.ErrorCode(raw); code != "" {
		c.log.Info("generator reported error", zap.String("code", code))
		return nil, ErrorRecord(raw)
	}

	rec, err := dfile.Parse(raw)
	if err != nil {
		var verr *dfile.ValidationError
		if !errors.As(err, &verr) {
			return nil, newErrorRecord(ErrSchemaValidation, "details", []string{err.Error()}, "raw_output", raw)
		}
		c.log.Warn("generated D-File failed validation", zap.Int("violations", len(verr.Violations)))
		return nil, newErrorRecord(ErrSchemaValidation, "details", verr.Violations, "raw_output", raw)
	}
	return rec, nil
}

// Run validates raw and executes it in mode. It never panics and never
// returns nil; every failure is reported with status error.
func (c *Compiler) Run(ctx context.Context, raw map[string]any, mode backend.Mode) *engine.Report {
	rec, err := dfile.Parse(raw)
	if err != nil {
		c.log.Warn("run rejected invalid D-File", zap.Error(err))
		return engine.Failed(mode, err.Error())
	}
	return c.RunRecord(ctx, rec, mode)
}

// RunRecord executes an already parsed record in mode.
func (c *Compiler) RunRecord(ctx context.Context, rec *dfile.Record, mode backend.Mode) *engine.Report {
	if rec == nil {
		return engine.Failed(mode, "no design record")
	}
	for _, issue := range graph.Check(rec) {
		level := zap.DebugLevel
		if issue.Severity == graph.SeverityError {
			level = zap.WarnLevel
		}
		c.log.Check(level, "design issue").Write(
			zap.String("code", issue.Code),
			zap.String("feature", issue.FeatureID),
			zap.String("message", issue.Message),
		)
	}
	b, note := c.OpenBackend(mode, rec.Part.Name)
	rep := c.execute(ctx, rec, b)
	if note != "" {
		rep.Logs = append([]string{note}, rep.Logs...)
	}
	return rep
}

// OpenBackend opens a fresh backend for mode. When the live backend cannot
// start, a mock backend is returned along with a note describing the
// fallback.
func (c *Compiler) OpenBackend(mode backend.Mode, document string) (backend.Backend, string) {
	b, err := c.opener.Open(mode, document)
	if err == nil {
		return b, ""
	}
	c.log.Warn("backend init failed, falling back to mock", zap.String("mode", string(mode)), zap.Error(err))
	note := "Backend " + string(mode) + " unavailable (" + err.Error() + "), falling back to mock"
	if mode != backend.ModeMock {
		if fb, err := c.opener.Open(backend.ModeMock, document); err == nil {
			return fb, note
		}
	}
	return mock.New(c.log), note
}
