package compiler

import (
	"github.com/chazu/vibecad/pkg/generator"
)

// Error codes returned by Compile.
const (
	ErrAmbiguousInput   = generator.CodeAmbiguousInput
	ErrSchemaValidation = generator.CodeSchemaValidation
	ErrInvalidJSON      = generator.CodeInvalidJSON
	ErrLLMFailure       = generator.CodeLLMFailure
)

// ErrorRecord is a structured compile failure. It is an ordinary response,
// not a Go error: callers inspect Code and the remaining keys.
type ErrorRecord map[string]any

// Code returns the error code.
func (e ErrorRecord) Code() string {
	return generator.ErrorCode(e)
}

func newErrorRecord(code string, kv ...any) ErrorRecord {
	rec := ErrorRecord{generator.ErrorKey: code}
	for i := 0; i+1 < len(kv); i += 2 {
		rec[kv[i].(string)] = kv[i+1]
	}
	return rec
}
