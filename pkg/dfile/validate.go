package dfile

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Reason classifies why a field failed validation.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonWrongType   Reason = "wrong_type"
	ReasonWrongLength Reason = "wrong_length"
	ReasonNotInEnum   Reason = "not_in_enum"
	ReasonDuplicate   Reason = "duplicate"
	ReasonInvalid     Reason = "invalid"
)

// Violation describes a single validation finding at a field path such as
// "features[2].parameters".
type Violation struct {
	Path    string `json:"path"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Message, v.Reason)
}

// ValidationError lists every violation found in a raw design record.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid design record: " + e.Violations[0].String()
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid design record: %d violations: %s", len(e.Violations), strings.Join(parts, "; "))
}

// Parse validates an untyped record, as produced by a generator or decoded
// from JSON/YAML, and returns the typed Record. On failure the error is a
// *ValidationError enumerating every violation, not just the first.
//
// Sketch back-references are not resolved here: forward references are
// legal and resolution happens during execution.
func Parse(raw map[string]any) (*Record, error) {
	p := &parser{}
	if raw == nil {
		p.add("", ReasonMissing, "design record is empty")
		return nil, p.err()
	}

	rec := &Record{}

	if meta, ok := p.object(raw, "", "meta", true); ok {
		rec.Meta.CADSystem = CADSystem(p.enum(meta, "meta", "cad_system", false, string(CATIAV5), cadSystems))
		rec.Meta.Units = Units(p.enum(meta, "meta", "units", false, string(UnitsMM), unitSystems))
		rec.Meta.DesignMode = DesignMode(p.enum(meta, "meta", "design_mode", false, string(Parametric), designModes))
	}

	if part, ok := p.object(raw, "", "part", true); ok {
		rec.Part.Name = p.str(part, "part", "name", false, "Part1")
		if origin := p.vector(part, "part", "origin", 3, false); origin != nil {
			copy(rec.Part.Origin[:], origin)
		}
		rec.Part.AxisSystem = p.str(part, "part", "axis_system", false, "default")
	}

	rec.ReferenceGeometry = DefaultReferenceGeometry()
	if rg, ok := p.object(raw, "", "reference_geometry", false); ok {
		if planes, ok := p.stringList(rg, "reference_geometry", "planes"); ok {
			rec.ReferenceGeometry.Planes = planes
		}
		if axes, ok := p.stringList(rg, "reference_geometry", "axes"); ok {
			rec.ReferenceGeometry.Axes = axes
		}
	}

	rec.Features = p.features(raw)
	rec.Relations = p.list(raw, "", "relations")
	rec.Constraints = p.list(raw, "", "constraints")
	rec.UpdateOrder = []string{}
	if order, ok := p.stringList(raw, "", "update_order"); ok {
		rec.UpdateOrder = order
	}

	if err := p.err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// features validates the feature list, including id uniqueness.
func (p *parser) features(raw map[string]any) []Feature {
	v, ok := raw["features"]
	if !ok || v == nil {
		p.add("features", ReasonMissing, "field required")
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		p.add("features", ReasonWrongType, "expected a list, got %s", typeName(v))
		return nil
	}

	out := make([]Feature, 0, len(items))
	seen := make(map[string]int, len(items))
	for i, item := range items {
		path := index("features", i)
		m, ok := item.(map[string]any)
		if !ok {
			p.add(path, ReasonWrongType, "expected an object, got %s", typeName(item))
			continue
		}

		f := Feature{Index: i}
		f.ID = p.str(m, path, "id", true, "")
		if f.ID != "" {
			if first, dup := seen[f.ID]; dup {
				p.add(join(path, "id"), ReasonDuplicate, "feature id %q already declared at features[%d]", f.ID, first)
			} else {
				seen[f.ID] = i
			}
		}

		if name := p.enum(m, path, "type", true, "", kindNames[:]); name != "" {
			f.Kind, _ = ParseKind(name)
		}
		f.SketchPlane = p.optionalStr(m, path, "sketch_plane")
		f.Sketch = p.optionalStr(m, path, "sketch")

		if params, ok := p.object(m, path, "parameters", true); ok {
			f.Parameters = params
		}
		out = append(out, f)
	}
	return out
}

// ---------------------------------------------------------------------------
// Field walker
// ---------------------------------------------------------------------------

// parser accumulates violations while reading fields out of an untyped tree.
// Every accessor reports its own violation and returns a zero value, so a
// caller can keep walking and collect all problems in one pass.
type parser struct {
	violations []Violation
}

func (p *parser) add(path string, reason Reason, format string, args ...any) {
	p.violations = append(p.violations, Violation{
		Path:    path,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *parser) err() error {
	if len(p.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: p.violations}
}

// lookup returns m[key]. Explicit nulls are treated as absent.
func (p *parser) lookup(m map[string]any, path, key string, required bool) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			p.add(join(path, key), ReasonMissing, "field required")
		}
		return nil, false
	}
	return v, true
}

func (p *parser) object(m map[string]any, path, key string, required bool) (map[string]any, bool) {
	v, ok := p.lookup(m, path, key, required)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected an object, got %s", typeName(v))
		return nil, false
	}
	return obj, true
}

func (p *parser) str(m map[string]any, path, key string, required bool, def string) string {
	v, ok := p.lookup(m, path, key, required)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected a string, got %s", typeName(v))
		return def
	}
	return s
}

func (p *parser) optionalStr(m map[string]any, path, key string) *string {
	v, ok := p.lookup(m, path, key, false)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected a string, got %s", typeName(v))
		return nil
	}
	return &s
}

func (p *parser) enum(m map[string]any, path, key string, required bool, def string, allowed []string) string {
	v, ok := p.lookup(m, path, key, required)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected a string, got %s", typeName(v))
		return def
	}
	if !slices.Contains(allowed, s) {
		p.add(join(path, key), ReasonNotInEnum, "%q is not one of %s", s, strings.Join(allowed, ", "))
		return def
	}
	return s
}

func (p *parser) number(m map[string]any, path, key string, required bool) *float64 {
	v, ok := p.lookup(m, path, key, required)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected a number, got %s", typeName(v))
		return nil
	}
	return &f
}

// vector reads a fixed-length list of numbers.
func (p *parser) vector(m map[string]any, path, key string, n int, required bool) []float64 {
	v, ok := p.lookup(m, path, key, required)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected a list of %d numbers, got %s", n, typeName(v))
		return nil
	}
	if len(items) != n {
		p.add(join(path, key), ReasonWrongLength, "expected %d coordinates, got %d", n, len(items))
		return nil
	}
	out := make([]float64, n)
	valid := true
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			p.add(index(join(path, key), i), ReasonWrongType, "expected a number, got %s", typeName(item))
			valid = false
			continue
		}
		out[i] = f
	}
	if !valid {
		return nil
	}
	return out
}

func (p *parser) point(m map[string]any, path, key string, required bool) *Point2 {
	v := p.vector(m, path, key, 2, required)
	if v == nil {
		return nil
	}
	return &Point2{X: v[0], Y: v[1]}
}

func (p *parser) stringList(m map[string]any, path, key string) ([]string, bool) {
	v, ok := p.lookup(m, path, key, false)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected a list of strings, got %s", typeName(v))
		return nil, false
	}
	out := make([]string, 0, len(items))
	valid := true
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			p.add(index(join(path, key), i), ReasonWrongType, "expected a string, got %s", typeName(item))
			valid = false
			continue
		}
		out = append(out, s)
	}
	return out, valid
}

// list reads an opaque list, defaulting to empty.
func (p *parser) list(m map[string]any, path, key string) []any {
	v, ok := p.lookup(m, path, key, false)
	if !ok {
		return []any{}
	}
	items, ok := v.([]any)
	if !ok {
		p.add(join(path, key), ReasonWrongType, "expected a list, got %s", typeName(v))
		return []any{}
	}
	return items
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// toFloat accepts every numeric representation a decoder may produce:
// float64 from encoding/json, int from yaml.v3, json.Number, and plain Go
// numbers from programmatic callers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
