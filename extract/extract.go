// Package extract maps one free-text user turn to typed candidate slot
// values by calling a remote extraction service or a tool-calling chat
// model.
package extract

import (
	"context"
	"fmt"

	"github.com/aristotle-ai/quizflow/slots"
)

// FieldSpec is one entry of the extraction schema, serialized on the wire
// as a [name, description, type] triple.
type FieldSpec struct {
	Name        string
	Description string
	Type        string
}

func (f FieldSpec) triple() []string {
	return []string{f.Name, f.Description, f.Type}
}

// QuizFields is the extraction schema for the quiz request slots. Files are
// intentionally absent: they only ever enter the request via upload.
func QuizFields() []FieldSpec {
	return []FieldSpec{
		{
			Name:        slots.FieldNumQuestions,
			Description: "how many questions the user wants generated",
			Type:        "integer",
		},
		{
			Name:        slots.FieldPrompt,
			Description: "topic or prompt describing what the quiz should cover",
			Type:        "string",
		},
		{
			Name:        slots.FieldGenerateNow,
			Description: "whether the user asked to generate the quiz now",
			Type:        "boolean",
		},
	}
}

// Extractor returns the candidate values found in one user turn. A nil
// ParsedFields with a nil error means the service produced no confident
// structured signal; the turn then proceeds without a merge.
type Extractor interface {
	Extract(ctx context.Context, inputText string, fields []FieldSpec) (slots.ParsedFields, error)
}

// FailbackExtractor tries each extractor in order until one succeeds.
type FailbackExtractor struct {
	extractors []Extractor
}

func NewFailbackExtractor(extractors ...Extractor) *FailbackExtractor {
	return &FailbackExtractor{extractors: extractors}
}

func (e *FailbackExtractor) Extract(ctx context.Context, inputText string, fields []FieldSpec) (slots.ParsedFields, error) {
	var lastErr error
	for _, extractor := range e.extractors {
		parsed, err := extractor.Extract(ctx, inputText, fields)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all extractors failed: %w", lastErr)
}
