package types

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

func formatFieldsTable(title string, fields []FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Required", "Description")
	for _, field := range fields {
		required := "no"
		if field.Required {
			required = "yes"
		}
		_ = table.Append(field.DisplayName, required, field.Description)
	}
	_ = table.Render()
	return buf.String()
}

// FormatSlotContext renders the current request state plus the unmet
// requirements as markdown for an LLM-backed generator.
func FormatSlotContext(state any, userInput string, mandatory, oneOf []FieldInfo) (string, error) {
	stateJSON, err := sonic.Marshal(state)
	if err != nil {
		return "", err
	}
	sections := []string{
		fmt.Sprintf("# Request state JSON:\n```json\n%s\n```", string(stateJSON)),
	}
	if userInput != "" {
		sections = append(sections, fmt.Sprintf("# Latest user message:\n%s", userInput))
	}
	if s := formatFieldsTable("Missing required fields", mandatory); s != "" {
		sections = append(sections, s)
	}
	if s := formatFieldsTable("Missing fields (at least one needed)", oneOf); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n\n"), nil
}
