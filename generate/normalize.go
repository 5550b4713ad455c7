package generate

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Normalize flattens the generation service's response into a list of
// items. Shapes are tried in priority order: a bare array, an object with a
// "questions" array, an object with an "output" array, a nested raw string
// holding any of the above, and finally a plain string. A string with no
// recognizable structure is exactly one opaque item; it is never split into
// multiple items by line or delimiter.
func Normalize(data any) []any {
	switch v := data.(type) {
	case []any:
		return v
	case map[string]any:
		if questions, ok := v["questions"].([]any); ok {
			return questions
		}
		if output, ok := v["output"].([]any); ok {
			return output
		}
		if raw, ok := v["raw"]; ok {
			return Normalize(raw)
		}
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		var parsed any
		if err := sonic.UnmarshalString(v, &parsed); err == nil {
			switch p := parsed.(type) {
			case []any:
				return p
			case map[string]any:
				if questions, ok := p["questions"].([]any); ok {
					return questions
				}
				if output, ok := p["output"].([]any); ok {
					return output
				}
			}
		}
		return []any{v}
	default:
		return nil
	}
}

// RenderItem formats one generated item for the transcript.
func RenderItem(item any, index int) string {
	var content string
	if s, ok := item.(string); ok {
		content = s
	} else if encoded, err := sonic.MarshalString(item); err == nil {
		content = encoded
	} else {
		content = "(unrenderable item)"
	}
	return fmt.Sprintf("Q%d: %s", index+1, content)
}
