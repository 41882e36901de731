package dfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses a JSON-encoded D-File and validates it.
func Decode(data []byte) (*Record, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// DecodeRaw parses JSON into the untyped mapping Parse expects, without
// validating it.
func DecodeRaw(data []byte) (map[string]any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("dfile: decode json: %w", err)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dfile: expected a JSON object, got %s", typeName(v))
	}
	return raw, nil
}

// DecodeYAML parses a YAML-encoded D-File and validates it. The YAML form
// uses the same keys as the JSON wire form.
func DecodeYAML(data []byte) (*Record, error) {
	raw, err := DecodeRawYAML(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// DecodeRawYAML is the YAML counterpart of DecodeRaw.
func DecodeRawYAML(data []byte) (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("dfile: decode yaml: %w", err)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dfile: expected a YAML mapping, got %s", typeName(v))
	}
	return raw, nil
}

// ReadFile reads an unvalidated D-File from path. Files ending in .yaml or
// .yml are decoded as YAML, anything else as JSON.
func ReadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dfile: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeRawYAML(data)
	default:
		return DecodeRaw(data)
	}
}

// ToMap renders the record in its wire shape as an untyped mapping.
func (r *Record) ToMap() (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("dfile: encode: %w", err)
	}
	return DecodeRaw(b)
}
