package engine

import (
	"github.com/chazu/vibecad/pkg/dfile"
)

// Order returns the effective execution sequence of a record.
//
// With a non-empty update_order, the sequence is the entries that name an
// existing feature, in listed order. Unknown ids are dropped; a repeated id
// runs each time it is listed. Otherwise the declaration order is
// used. Sketch back-references are not resolved here; a pad whose sketch has
// not run yet fails at dispatch.
func Order(rec *dfile.Record) []*dfile.Feature {
	if rec == nil {
		return nil
	}
	if len(rec.UpdateOrder) == 0 {
		out := make([]*dfile.Feature, len(rec.Features))
		for i := range rec.Features {
			out[i] = &rec.Features[i]
		}
		return out
	}

	byID := make(map[string]*dfile.Feature, len(rec.Features))
	for i := range rec.Features {
		byID[rec.Features[i].ID] = &rec.Features[i]
	}
	out := make([]*dfile.Feature, 0, len(rec.UpdateOrder))
	for _, id := range rec.UpdateOrder {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Dropped returns the update_order entries Order ignores: ids that name no
// feature.
func Dropped(rec *dfile.Record) []string {
	if rec == nil {
		return nil
	}
	known := make(map[string]bool, len(rec.Features))
	for _, f := range rec.Features {
		known[f.ID] = true
	}
	var out []string
	for _, id := range rec.UpdateOrder {
		if !known[id] {
			out = append(out, id)
		}
	}
	return out
}
