package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/chazu/vibecad/pkg/compiler"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/engine"
	"github.com/chazu/vibecad/pkg/graph"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRecord writes rec to path, or to w when path is empty. A .yaml or
// .yml path selects YAML.
func writeRecord(w io.Writer, path string, rec *dfile.Record) error {
	if path == "" {
		return writeJSON(w, rec)
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		m, err := rec.ToMap()
		if err != nil {
			return err
		}
		if data, err = yaml.Marshal(m); err != nil {
			return fmt.Errorf("failed to encode D-File: %w", err)
		}
	default:
		var err error
		if data, err = json.MarshalIndent(rec, "", "  "); err != nil {
			return fmt.Errorf("failed to encode D-File: %w", err)
		}
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write D-File: %w", err)
	}
	fmt.Fprint(w, pterm.Success.Sprintfln("wrote %s (%d features)", path, len(rec.Features)))
	return nil
}

func renderErrorRecord(w io.Writer, rec compiler.ErrorRecord) {
	fmt.Fprint(w, pterm.Error.Sprintfln("compile failed: %s", rec.Code()))

	if details, ok := rec["details"].([]dfile.Violation); ok {
		renderViolations(w, details)
		return
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k != "error" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, rec[k])
	}
}

// renderValidationError renders err when it is a validation failure and
// reports whether it did.
func renderValidationError(w io.Writer, err error) bool {
	var verr *dfile.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	fmt.Fprint(w, pterm.Error.Sprintfln("invalid D-File: %d violations", len(verr.Violations)))
	renderViolations(w, verr.Violations)
	return true
}

func renderViolations(w io.Writer, violations []dfile.Violation) {
	data := pterm.TableData{{"Path", "Reason", "Message"}}
	for _, v := range violations {
		data = append(data, []string{v.Path, string(v.Reason), v.Message})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		for _, v := range violations {
			fmt.Fprintln(w, v.String())
		}
		return
	}
	fmt.Fprintln(w, out)
}

func renderRecordSummary(w io.Writer, rec *dfile.Record) {
	fmt.Fprint(w, pterm.Success.Sprintfln("%s is valid (%d features, %s)", rec.Part.Name, len(rec.Features), rec.Meta.Units))
	items := make([]pterm.BulletListItem, 0, len(rec.Features))
	for _, f := range engine.Order(rec) {
		items = append(items, pterm.BulletListItem{Text: fmt.Sprintf("%s (%s)", f.ID, f.Kind)})
	}
	if out, err := pterm.DefaultBulletList.WithItems(items).Srender(); err == nil {
		fmt.Fprint(w, out)
	}
}

func renderFindings(w io.Writer, findings []graph.ValidationError) {
	for _, f := range findings {
		p := pterm.Warning
		if f.Severity == graph.SeverityError {
			p = pterm.Error
		}
		fmt.Fprint(w, p.Sprintfln("%s", f.Error()))
	}
}

func renderSuggestedOrder(w io.Writer, order []string) {
	fmt.Fprint(w, pterm.Info.Sprintfln("suggested update_order: %s", strings.Join(order, ", ")))
}

func renderReport(w io.Writer, rep *engine.Report) {
	fmt.Fprint(w, pterm.DefaultSection.Sprintfln("Run %s (%s)", rep.RunID, rep.Mode))

	if len(rep.Outcomes) > 0 {
		data := pterm.TableData{{"Feature", "Kind", "State", "Reason"}}
		for _, o := range rep.Outcomes {
			data = append(data, []string{o.FeatureID, o.Kind, o.State.String(), o.Reason})
		}
		if out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender(); err == nil {
			fmt.Fprintln(w, out)
		}
	}
	for _, path := range rep.Outputs {
		fmt.Fprint(w, pterm.Info.Sprintfln("wrote %s", path))
	}

	switch rep.Status {
	case engine.StatusSuccess:
		fmt.Fprint(w, pterm.Success.Sprintfln("%s", rep.Status))
	case engine.StatusCompletedWithErrors:
		fmt.Fprint(w, pterm.Warning.Sprintfln("%s: %d of %d features failed or were skipped", rep.Status, len(rep.Errors), len(rep.Outcomes)))
	default:
		fmt.Fprint(w, pterm.Error.Sprintfln("%s: %s", rep.Status, rep.Message))
	}
}
