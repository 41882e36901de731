package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/vibecad/pkg/dfile"
)

// ReplayConfig configures the replay provider.
type ReplayConfig struct {
	Path string `yaml:"path"`
}

// Replay returns a stored D-File instead of calling a model. The prompt is
// ignored. Files ending in .yaml or .yml are read as YAML, anything else as
// model output (JSON, optionally fenced).
type Replay struct {
	path string
}

// NewReplay creates a replay provider for path.
func NewReplay(path string) (*Replay, error) {
	if path == "" {
		return nil, fmt.Errorf("replay: path is required")
	}
	return &Replay{path: path}, nil
}

// Name returns the provider name.
func (r *Replay) Name() string { return "replay" }

func (r *Replay) Generate(ctx context.Context, _ string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".yaml", ".yml":
		raw, err := dfile.DecodeRawYAML(data)
		if err != nil {
			return map[string]any{ErrorKey: CodeInvalidJSON, "content": string(data)}, nil
		}
		return raw, nil
	default:
		return ParseOutput(string(data)), nil
	}
}
