package graph

import (
	"testing"

	"github.com/chazu/vibecad/pkg/dfile"
)

func codes(errs []ValidationError) map[string][]string {
	out := make(map[string][]string)
	for _, e := range errs {
		out[e.Code] = append(out[e.Code], e.FeatureID)
	}
	return out
}

func TestValidateClean(t *testing.T) {
	rec := record([]string{"sketch_1", "pad_1"}, sketch("sketch_1"), pad("pad_1", "sketch_1"))
	if errs := Check(rec); len(errs) != 0 {
		t.Errorf("expected no findings, got %v", errs)
	}
	if errs := Check(nil); errs != nil {
		t.Errorf("nil record should have no findings, got %v", errs)
	}
}

func TestValidateForwardReference(t *testing.T) {
	rec := record([]string{"pad_1", "sketch_1"}, sketch("sketch_1"), pad("pad_1", "sketch_1"))
	errs := Check(rec)

	if !HasErrors(errs) {
		t.Fatal("forward reference should be an error")
	}
	if got := codes(errs)[CodeForwardReference]; len(got) != 1 || got[0] != "pad_1" {
		t.Errorf("FORWARD_REFERENCE = %v", got)
	}
}

func TestValidateReferences(t *testing.T) {
	rec := record(nil,
		sketch("sketch_1"),
		pad("pad_1", "sketch_9"),
		pad("pad_2", "pad_1"),
		dfile.Feature{ID: "pocket_1", Kind: dfile.KindPocket},
		sketch("sketch_2"),
	)
	c := codes(Check(rec))

	tests := []struct {
		code string
		want string
	}{
		{CodeMissingDependency, "pad_1"},
		{CodeNotASketch, "pad_2"},
		{CodeMissingReference, "pocket_1"},
	}
	for _, tt := range tests {
		got := c[tt.code]
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("%s = %v, want [%s]", tt.code, got, tt.want)
		}
	}
	if got := c[CodeUnusedSketch]; len(got) != 2 {
		t.Errorf("UNUSED_SKETCH = %v, want both sketches", got)
	}
}

func TestValidateSchedule(t *testing.T) {
	rec := record([]string{"pad_1", "ghost", "pad_1"},
		sketch("sketch_1"),
		pad("pad_1", "sketch_1"),
	)
	errs := Check(rec)
	c := codes(errs)

	if got := c[CodeUnscheduledDep]; len(got) != 1 || got[0] != "pad_1" {
		t.Errorf("UNSCHEDULED_DEPENDENCY = %v", got)
	}
	if got := c[CodeUnscheduled]; len(got) != 1 || got[0] != "sketch_1" {
		t.Errorf("UNSCHEDULED = %v", got)
	}
	if got := c[CodeIgnoredOrderEntry]; len(got) != 1 || got[0] != "ghost" {
		t.Errorf("IGNORED_ORDER_ENTRY = %v, want [ghost]", got)
	}
	if got := c[CodeRepeatedOrderEntry]; len(got) != 1 || got[0] != "pad_1" {
		t.Errorf("REPEATED_ORDER_ENTRY = %v, want [pad_1]", got)
	}

	// Errors sort before warnings.
	if errs[0].Severity != SeverityError {
		t.Errorf("first finding = %v, want an error", errs[0])
	}
	if last := errs[len(errs)-1]; last.Severity != SeverityWarning {
		t.Errorf("last finding = %v, want a warning", last)
	}
}

func TestValidateRepeatedEntryUsesFirstPosition(t *testing.T) {
	// The sketch runs before the pad's first listing, so only the repeat
	// is reported.
	rec := record([]string{"sketch_1", "pad_1", "sketch_1", "pad_1"},
		sketch("sketch_1"),
		pad("pad_1", "sketch_1"),
	)
	errs := Check(rec)
	if HasErrors(errs) {
		t.Fatalf("unexpected errors: %v", errs)
	}
	c := codes(errs)
	if got := c[CodeRepeatedOrderEntry]; len(got) != 2 || got[0] != "sketch_1" || got[1] != "pad_1" {
		t.Errorf("REPEATED_ORDER_ENTRY = %v, want [sketch_1 pad_1]", got)
	}
}

func TestValidatePlanes(t *testing.T) {
	plane := func(id string, params map[string]any) dfile.Feature {
		return dfile.Feature{ID: id, Kind: dfile.KindPlaneOffset, Parameters: params}
	}
	rec := record(nil,
		plane("plane_1", map[string]any{"reference": "XY", "offset": 5.0}),
		plane("plane_2", map[string]any{"reference": "plane_1", "offset": 5.0}),
		plane("plane_3", map[string]any{"reference": "AB", "offset": 5.0}),
		plane("plane_4", map[string]any{"reference": "XY"}),
	)
	errs := Check(rec)
	if HasErrors(errs) {
		t.Errorf("plane findings should be warnings: %v", errs)
	}
	c := codes(errs)
	if got := c[CodeUnknownPlane]; len(got) != 1 || got[0] != "plane_3" {
		t.Errorf("UNKNOWN_PLANE = %v, want [plane_3]", got)
	}
	if got := c[CodeInvalidParameters]; len(got) != 1 || got[0] != "plane_4" {
		t.Errorf("INVALID_PARAMETERS = %v, want [plane_4]", got)
	}
}

func TestSuggestedOrder(t *testing.T) {
	rec := record([]string{"pad_1", "sketch_1"}, pad("pad_1", "sketch_1"), sketch("sketch_1"))
	v := NewValidator(rec)
	if !HasCode(v.Validate(), CodeForwardReference) {
		t.Fatal("expected a forward reference")
	}
	got := v.SuggestedOrder()
	if len(got) != 2 || got[0] != "sketch_1" || got[1] != "pad_1" {
		t.Errorf("SuggestedOrder() = %v, want [sketch_1 pad_1]", got)
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Code: CodeForwardReference, Message: "sketch s runs after this feature", FeatureID: "p"}
	want := "FORWARD_REFERENCE: sketch s runs after this feature (feature: p)"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
	if SeverityError.String() != "error" || SeverityWarning.String() != "warning" {
		t.Error("severity names")
	}
}
