// Package generate turns a confirmed request into persisted quiz questions:
// it resolves the effective prompt, calls the question-generation service,
// normalizes the response shape, and saves the result.
package generate

import "context"

// Generator calls the question-generation service. The returned value keeps
// whatever shape the service produced; Normalize flattens it.
type Generator interface {
	Generate(ctx context.Context, numQuestions int, prompt string) (any, error)
}

// SaveRequest is the persistence payload for one generated batch.
type SaveRequest struct {
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Questions   []any        `json:"questions"`
	Metadata    SaveMetadata `json:"metadata"`
	Filename    string       `json:"filename"`
}

type SaveMetadata struct {
	Source    string    `json:"source"`
	Topics    []string  `json:"topics"`
	Materials []FileRef `json:"materials"`
}

type FileRef struct {
	Filename string `json:"filename"`
}

// Saver persists generated questions and returns the storage key.
type Saver interface {
	Save(ctx context.Context, req *SaveRequest) (string, error)
}
