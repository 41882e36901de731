package graph

import (
	"fmt"

	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/engine"
)

// Severity grades a validation finding.
type Severity int

const (
	// SeverityWarning findings do not change what a run does.
	SeverityWarning Severity = iota
	// SeverityError findings name a feature that will fail or never run.
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// ValidationError represents a dependency finding.
type ValidationError struct {
	Code      string
	Message   string
	FeatureID string
	Severity  Severity
}

func (e ValidationError) Error() string {
	context := ""
	if e.FeatureID != "" {
		context = fmt.Sprintf(" (feature: %s)", e.FeatureID)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, context)
}

// Finding codes.
const (
	CodeMissingReference   = "MISSING_REFERENCE"
	CodeMissingDependency  = "MISSING_DEPENDENCY"
	CodeNotASketch         = "NOT_A_SKETCH"
	CodeForwardReference   = "FORWARD_REFERENCE"
	CodeUnscheduled        = "UNSCHEDULED"
	CodeUnscheduledDep     = "UNSCHEDULED_DEPENDENCY"
	CodeIgnoredOrderEntry  = "IGNORED_ORDER_ENTRY"
	CodeRepeatedOrderEntry = "REPEATED_ORDER_ENTRY"
	CodeUnusedSketch       = "UNUSED_SKETCH"
	CodeUnknownPlane       = "UNKNOWN_PLANE"
	CodeInvalidParameters  = "INVALID_PARAMETERS"
)

// Validator checks a record's dependencies against its effective order.
type Validator struct {
	rec   *dfile.Record
	graph *Graph
	pos   map[string]int
}

// NewValidator creates a validator for rec.
func NewValidator(rec *dfile.Record) *Validator {
	v := &Validator{rec: rec, graph: Build(rec), pos: make(map[string]int)}
	for i, f := range engine.Order(rec) {
		if _, ok := v.pos[f.ID]; !ok {
			v.pos[f.ID] = i
		}
	}
	return v
}

// Validate performs every check and returns the findings, errors first.
func (v *Validator) Validate() []ValidationError {
	if v.rec == nil {
		return nil
	}
	var errors []ValidationError

	errors = append(errors, v.validateOrder()...)
	errors = append(errors, v.validateReferences()...)
	errors = append(errors, v.validateSchedule()...)
	errors = append(errors, v.validatePlanes()...)

	var out []ValidationError
	for _, e := range errors {
		if e.Severity == SeverityError {
			out = append(out, e)
		}
	}
	for _, e := range errors {
		if e.Severity != SeverityError {
			out = append(out, e)
		}
	}
	return out
}

// Check is shorthand for NewValidator(rec).Validate().
func Check(rec *dfile.Record) []ValidationError {
	return NewValidator(rec).Validate()
}

// HasErrors reports whether any finding is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasCode reports whether any finding carries code.
func HasCode(errs []ValidationError, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

// SuggestedOrder returns a feature order in which every sketch precedes the
// features built from it.
func (v *Validator) SuggestedOrder() []string {
	return v.graph.TopoOrder()
}

// validateOrder reports update_order entries the engine ignores and
// features it runs more than once.
func (v *Validator) validateOrder() []ValidationError {
	var errors []ValidationError
	for _, id := range engine.Dropped(v.rec) {
		errors = append(errors, ValidationError{
			Code:      CodeIgnoredOrderEntry,
			Message:   "update_order names an unknown feature",
			FeatureID: id,
			Severity:  SeverityWarning,
		})
	}

	count := make(map[string]int)
	var repeated []string
	for _, f := range engine.Order(v.rec) {
		count[f.ID]++
		if count[f.ID] == 2 {
			repeated = append(repeated, f.ID)
		}
	}
	for _, id := range repeated {
		errors = append(errors, ValidationError{
			Code:      CodeRepeatedOrderEntry,
			Message:   fmt.Sprintf("update_order lists this feature %d times; it runs each time", count[id]),
			FeatureID: id,
			Severity:  SeverityWarning,
		})
	}
	return errors
}

// consumesSketch reports whether features of kind k are built from a sketch.
func consumesSketch(k dfile.Kind) bool {
	switch k {
	case dfile.KindPad, dfile.KindPocket, dfile.KindShaft, dfile.KindGroove, dfile.KindRib:
		return true
	}
	return false
}

// validateReferences checks each sketch back-reference.
func (v *Validator) validateReferences() []ValidationError {
	var errors []ValidationError
	used := make(map[string]bool)

	for _, id := range v.graph.order {
		n := v.graph.Nodes[id]
		if n.Ref == "" {
			if consumesSketch(n.Kind) {
				errors = append(errors, ValidationError{
					Code:      CodeMissingReference,
					Message:   fmt.Sprintf("%s names no sketch", n.Kind),
					FeatureID: id,
					Severity:  SeverityError,
				})
			}
			continue
		}
		used[n.Ref] = true

		dep := v.graph.Nodes[n.Ref]
		switch {
		case dep == nil:
			errors = append(errors, ValidationError{
				Code:      CodeMissingDependency,
				Message:   fmt.Sprintf("references non-existent sketch %s", n.Ref),
				FeatureID: id,
				Severity:  SeverityError,
			})
		case dep.Kind != dfile.KindSketch:
			errors = append(errors, ValidationError{
				Code:      CodeNotASketch,
				Message:   fmt.Sprintf("references %s, which is a %s", n.Ref, dep.Kind),
				FeatureID: id,
				Severity:  SeverityError,
			})
		}
	}

	for _, id := range v.graph.order {
		n := v.graph.Nodes[id]
		if n.Kind == dfile.KindSketch && !used[id] {
			errors = append(errors, ValidationError{
				Code:      CodeUnusedSketch,
				Message:   "no feature consumes this sketch",
				FeatureID: id,
				Severity:  SeverityWarning,
			})
		}
	}
	return errors
}

// validateSchedule compares dependencies with the effective order.
func (v *Validator) validateSchedule() []ValidationError {
	var errors []ValidationError

	for _, id := range v.graph.order {
		pos, scheduled := v.pos[id]
		if !scheduled {
			errors = append(errors, ValidationError{
				Code:      CodeUnscheduled,
				Message:   "feature is not listed in update_order and will not run",
				FeatureID: id,
				Severity:  SeverityWarning,
			})
			continue
		}
		for _, dep := range v.graph.Edges[id] {
			node := v.graph.Nodes[dep]
			if node == nil || node.Kind != dfile.KindSketch {
				continue
			}
			depPos, ok := v.pos[dep]
			switch {
			case !ok:
				errors = append(errors, ValidationError{
					Code:      CodeUnscheduledDep,
					Message:   fmt.Sprintf("sketch %s never runs", dep),
					FeatureID: id,
					Severity:  SeverityError,
				})
			case depPos > pos:
				errors = append(errors, ValidationError{
					Code:      CodeForwardReference,
					Message:   fmt.Sprintf("sketch %s runs after this feature", dep),
					FeatureID: id,
					Severity:  SeverityError,
				})
			}
		}
	}
	return errors
}

// validatePlanes checks offset planes against the record's reference planes
// and the other offset planes. Offset planes are not built, so findings are
// warnings.
func (v *Validator) validatePlanes() []ValidationError {
	known := make(map[string]bool)
	planes := v.rec.ReferenceGeometry.Planes
	if len(planes) == 0 {
		planes = dfile.DefaultReferenceGeometry().Planes
	}
	for _, name := range planes {
		known[name] = true
	}
	for _, f := range v.rec.Features {
		if f.Kind == dfile.KindPlaneOffset {
			known[f.ID] = true
		}
	}

	var errors []ValidationError
	for _, f := range v.rec.Features {
		if f.Kind != dfile.KindPlaneOffset {
			continue
		}
		pp, err := f.PlaneParams()
		switch {
		case err != nil:
			errors = append(errors, ValidationError{
				Code:      CodeInvalidParameters,
				Message:   err.Error(),
				FeatureID: f.ID,
				Severity:  SeverityWarning,
			})
		case pp.Reference == f.ID || !known[pp.Reference]:
			errors = append(errors, ValidationError{
				Code:      CodeUnknownPlane,
				Message:   fmt.Sprintf("offset from unknown plane %s", pp.Reference),
				FeatureID: f.ID,
				Severity:  SeverityWarning,
			})
		}
	}
	return errors
}
