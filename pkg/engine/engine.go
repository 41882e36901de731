// Package engine executes a validated D-File against a backend. Features run
// one at a time in effective order; a failure at one feature is recorded and
// the run continues. A single Update is issued after dispatch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/dfile"
)

// ReasonNotImplemented is the skip reason for kinds without a construction
// routine.
const ReasonNotImplemented = "not implemented"

// Report is the result of one run.
type Report struct {
	RunID    string       `json:"run_id"`
	Status   Status       `json:"status"`
	Mode     backend.Mode `json:"mode"`
	Logs     []string     `json:"logs"`
	Errors   []string     `json:"errors"`
	Outcomes []Outcome    `json:"outcomes"`
	Outputs  []string     `json:"outputs,omitempty"`
	Message  string       `json:"message,omitempty"`
	Duration Duration     `json:"duration_ms"`
}

// Duration marshals as whole milliseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", time.Duration(d).Milliseconds())), nil
}

// Failed returns a report for a run that could not execute at all.
func Failed(mode backend.Mode, message string) *Report {
	return &Report{
		RunID:    uuid.NewString(),
		Status:   StatusError,
		Mode:     mode,
		Logs:     []string{},
		Errors:   []string{message},
		Outcomes: []Outcome{},
		Message:  message,
	}
}

// Engine runs D-Files. It holds no per-run state and is safe for concurrent
// use as long as each run gets its own backend.
type Engine struct {
	log *zap.Logger
}

// New creates an Engine. A nil logger discards output.
func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log.Named("engine")}
}

// run holds the state of a single execution.
type run struct {
	b       backend.Backend
	log     *zap.Logger
	created map[string]bool
}

// Execute dispatches every feature of rec to b and returns the run report.
// It stops dispatching early if ctx is done, reporting status error.
func (e *Engine) Execute(ctx context.Context, rec *dfile.Record, b backend.Backend) *Report {
	start := time.Now()
	rep := &Report{
		RunID:    uuid.NewString(),
		Mode:     b.Mode(),
		Logs:     []string{},
		Errors:   []string{},
		Outcomes: []Outcome{},
	}
	log := e.log.With(zap.String("run_id", rep.RunID), zap.String("mode", string(rep.Mode)))
	defer func() {
		rep.Duration = Duration(time.Since(start))
		log.Info("run finished",
			zap.String("status", string(rep.Status)),
			zap.Int("features", len(rep.Outcomes)),
			zap.Int("errors", len(rep.Errors)),
			zap.Duration("elapsed", time.Since(start)))
	}()

	if dropped := Dropped(rec); len(dropped) > 0 {
		log.Debug("update_order entries ignored", zap.Strings("ids", dropped))
	}

	r := &run{b: b, log: log, created: make(map[string]bool)}
	for _, f := range Order(rec) {
		if err := ctx.Err(); err != nil {
			rep.Status = StatusError
			rep.Message = fmt.Sprintf("run cancelled: %v", err)
			rep.Errors = append(rep.Errors, rep.Message)
			return rep
		}
		o := r.feature(f)
		rep.Outcomes = append(rep.Outcomes, o)
		line := o.Line()
		rep.Logs = append(rep.Logs, line)
		if o.State != StateOK {
			rep.Errors = append(rep.Errors, line)
		}
	}

	if err := update(b); err != nil {
		log.Error("update failed", zap.Error(err))
		rep.Status = StatusError
		rep.Message = fmt.Sprintf("update failed: %v", err)
		rep.Errors = append(rep.Errors, rep.Message)
		return rep
	}
	if out, ok := b.(backend.Outputs); ok {
		rep.Outputs = out.Outputs()
	}
	rep.Status = Classify(rep.Outcomes)
	return rep
}

// update calls b.Update, converting a panic into an error.
func update(b backend.Backend) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.Update()
}

// feature dispatches one feature. Errors and panics are contained here.
func (r *run) feature(f *dfile.Feature) (o Outcome) {
	o = Outcome{FeatureID: f.ID, Kind: f.Kind.String(), State: StateOK}
	log := r.log.With(zap.String("feature", f.ID), zap.String("kind", o.Kind))
	defer func() {
		if p := recover(); p != nil {
			o.State = StateFailed
			o.Reason = fmt.Sprintf("panic: %v", p)
			log.Error("feature panicked", zap.Any("panic", p))
		}
	}()

	var err error
	switch f.Kind {
	case dfile.KindSketch:
		err = r.sketch(f)
	case dfile.KindPad:
		err = r.pad(f)
	default:
		log.Warn("feature type not ready for execution")
		o.State = StateSkipped
		o.Reason = ReasonNotImplemented
		return o
	}
	if err != nil {
		o.State = StateFailed
		o.Reason = err.Error()
		log.Error("feature failed", zap.Error(err))
		return o
	}
	log.Info("feature executed")
	return o
}

var (
	errNoPlane  = errors.New("sketch_plane is required")
	errNoSketch = errors.New("sketch reference is required")
	errNoExtent = errors.New("length or depth is required")
)

func (r *run) sketch(f *dfile.Feature) error {
	if f.SketchPlane == nil {
		return errNoPlane
	}
	plane, err := r.b.ResolvePlane(*f.SketchPlane)
	if err != nil {
		return err
	}
	params, err := f.SketchParams()
	if err != nil {
		return err
	}
	if params.Empty() {
		r.log.Warn("sketch has no primitives", zap.String("feature", f.ID))
	}

	sk, err := r.b.OpenSketch(f.ID, plane)
	if err != nil {
		return err
	}
	if c := params.Circle; c != nil {
		if err := sk.AddCircle(*c); err != nil {
			return err
		}
	}
	if l := params.Line; l != nil {
		if err := sk.AddLine(dfile.Segment{Start: l.Start, End: l.End}); err != nil {
			return err
		}
	}
	if rect := params.Rectangle; rect != nil {
		edges, err := rect.Edges()
		if err != nil {
			return err
		}
		for _, e := range edges {
			if err := sk.AddLine(e); err != nil {
				return err
			}
		}
	}
	if err := sk.Close(); err != nil {
		return err
	}
	r.created[f.ID] = true
	return nil
}

func (r *run) pad(f *dfile.Feature) error {
	if f.Sketch == nil || *f.Sketch == "" {
		return errNoSketch
	}
	ref := *f.Sketch
	if !r.created[ref] {
		return fmt.Errorf("could not find sketch %s", ref)
	}
	params, err := f.SolidParams()
	if err != nil {
		return err
	}
	length, ok := params.Extent()
	if !ok {
		return errNoExtent
	}
	return r.b.Pad(f.ID, ref, length, params.Direction)
}
