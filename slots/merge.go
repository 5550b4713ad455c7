package slots

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var truthyPattern = regexp.MustCompile(`(?i)^\s*[yt1]`)

// Merge applies one extraction result to a SlotSet and returns the merged
// copy. Each rule fires only when its field is present in fields, so
// reapplying the same ParsedFields is a no-op and an absent or invalid
// num_questions never disturbs a previously set value. Files are
// deliberately ignored here: hallucinated filenames must not enter the set.
func Merge(cur SlotSet, fields ParsedFields) SlotSet {
	out := cur.Clone()
	if fields == nil {
		return out
	}
	if v, ok := fields[FieldNumQuestions]; ok {
		if n, valid := parsePositiveInt(v); valid {
			out.NumQuestions = n
		}
	}
	if v, ok := fields[FieldPrompt]; ok {
		if s, isString := v.(string); isString {
			out.Prompt = s
		}
	}
	if v, ok := fields[FieldGenerateNow]; ok {
		out.GenerateNow = coerceBool(v)
	}
	return out
}

func parsePositiveInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n > 0
	case int64:
		return int(n), n > 0
	case float64:
		if n > 0 && n == math.Trunc(n) {
			return int(n), true
		}
		return 0, false
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || parsed <= 0 {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return truthyPattern.MatchString(b)
	case float64:
		return b != 0
	case int:
		return b != 0
	case nil:
		return false
	default:
		return true
	}
}
