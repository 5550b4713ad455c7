package generate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aristotle-ai/quizflow/material"
	"github.com/aristotle-ai/quizflow/slots"
)

// MaxMaterialPreview bounds how much uploaded content is embedded into a
// synthesized prompt, to keep prompts from growing with file size.
const MaxMaterialPreview = 4000

// ResolvePrompt picks the effective generation prompt for a confirmed
// request: the typed prompt verbatim when present, otherwise a prompt
// synthesized from a matching uploaded material, otherwise a generic
// reference to the confirmed files, otherwise the user's known topics.
func ResolvePrompt(pending slots.PendingGeneration, files []string, userData material.UserData) string {
	if pending.PromptToUse != "" {
		return pending.PromptToUse
	}
	if mat, ok := userData.FindByFilename(files); ok {
		preview := mat.Content
		if len(preview) > MaxMaterialPreview {
			preview = preview[:MaxMaterialPreview]
		}
		return fmt.Sprintf(
			"Create %d multiple-choice questions from the following study material:\n\nTitle: %s\nContent preview:\n%s",
			pending.NumQuestions, mat.Filename, preview,
		)
	}
	if len(files) > 0 {
		return fmt.Sprintf(
			"Create %d multiple-choice questions based on the user's uploaded files: %s",
			pending.NumQuestions, strings.Join(files, ", "),
		)
	}
	return fmt.Sprintf(
		"Create %d multiple-choice questions about: %s",
		pending.NumQuestions, strings.Join(userData.Topics, ", "),
	)
}

const maxLabelLength = 60

var (
	unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9-_. ]`)
	labelWhitespace  = regexp.MustCompile(`\s+`)
)

// SafeFilename derives a storage filename from a source label: restricted
// character set, length bounded, timestamp suffixed for uniqueness.
func SafeFilename(label string, now time.Time) string {
	if len(label) > maxLabelLength {
		label = label[:maxLabelLength]
	}
	label = unsafeLabelChars.ReplaceAllString(label, "")
	label = labelWhitespace.ReplaceAllString(label, "_")
	label = strings.Trim(label, "_")
	if label == "" {
		label = "quiz"
	}
	return fmt.Sprintf("%s-%d.json", label, now.UnixMilli())
}
