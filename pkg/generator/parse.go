package generator

import (
	"encoding/json"
	"strings"
)

// ParseOutput decodes model output into a raw mapping. Markdown code fences
// are stripped first. Output that is not a JSON object becomes an
// INVALID_JSON_OUTPUT error record carrying the cleaned content.
func ParseOutput(content string) map[string]any {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var raw map[string]any
	if err := json.Unmarshal([]byte(clean), &raw); err != nil || raw == nil {
		return map[string]any{
			ErrorKey:  CodeInvalidJSON,
			"content": clean,
		}
	}
	return raw
}
