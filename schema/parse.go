package schema

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/guiperry/llmcore/types"
)

// ExtractJSON pulls the first JSON object or array out of raw model
// output, tolerating markdown code fences and surrounding prose.
func ExtractJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)

	// Strip a ```json ... ``` fence if the whole payload is fenced.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if i := strings.LastIndex(trimmed, "```"); i >= 0 {
			trimmed = trimmed[:i]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if gjson.Valid(trimmed) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		return trimmed, true
	}

	// Fall back to scanning for the outermost object or array.
	for _, pair := range [2][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(trimmed, pair[0])
		end := strings.LastIndex(trimmed, pair[1])
		if start >= 0 && end > start {
			candidate := trimmed[start : end+1]
			if gjson.Valid(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// Unmarshal extracts JSON from raw model output and decodes it into v.
// Failure to locate or decode valid JSON is a SchemaParseError.
func Unmarshal(raw string, def *Definition, v any) error {
	name := ""
	if def != nil {
		name = def.Name
	}

	payload, ok := ExtractJSON(raw)
	if !ok {
		return &types.SchemaParseError{Op: "schema.Unmarshal", Schema: name, Raw: clip(raw)}
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return &types.SchemaParseError{Op: "schema.Unmarshal", Schema: name, Raw: clip(raw), Err: err}
	}
	return nil
}

// clip bounds the raw payload carried inside an error.
func clip(raw string) string {
	const limit = 512
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit] + "..."
}
