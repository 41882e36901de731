// Package generator turns a natural-language design prompt into an untyped
// D-File mapping by calling a language model. Providers are interchangeable
// behind the Generator interface; Fallback chains them.
package generator

import (
	"context"
	"errors"
	"strings"
)

// Generator produces a raw D-File mapping for a prompt. A returned mapping
// carrying an "error" key is a reported outcome, not a Go error; the Go error
// is reserved for transport and provider failures.
type Generator interface {
	Generate(ctx context.Context, prompt string) (map[string]any, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, prompt string) (map[string]any, error)

// Generate calls f(ctx, prompt).
func (f Func) Generate(ctx context.Context, prompt string) (map[string]any, error) {
	return f(ctx, prompt)
}

// Error codes carried under the "error" key of a raw result.
const (
	CodeAmbiguousInput   = "AMBIGUOUS_INPUT"
	CodeSchemaValidation = "SCHEMA_VALIDATION_FAILED"
	CodeInvalidJSON      = "INVALID_JSON_OUTPUT"
	CodeLLMFailure       = "LLM_FAILURE"
)

// ErrorKey is the key that marks a raw result as an error record.
const ErrorKey = "error"

// ErrNoProvider is returned when no provider can be configured.
var ErrNoProvider = errors.New("no generator provider available")

// ErrorCode returns the error code of a raw result, or "" when it is not an
// error record.
func ErrorCode(raw map[string]any) string {
	v, ok := raw[ErrorKey]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return "UNKNOWN"
}
