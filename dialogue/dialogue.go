// Package dialogue produces the clarifying replies shown to the user when
// the request is not yet complete.
package dialogue

import (
	"context"
	"fmt"

	"github.com/aristotle-ai/quizflow/slots"
)

// Request carries the slot context plus the unmet requirements for one
// clarification turn.
type Request struct {
	InputText          string
	Slots              slots.SlotSet
	MandatoryMissing   []string
	OneOfMissing       []string
	SystemInstructions string
}

type Generator interface {
	GenerateReply(ctx context.Context, req *Request) (string, error)
}

// FailbackGenerator tries each generator in order until one succeeds.
type FailbackGenerator struct {
	generators []Generator
}

func NewFailbackGenerator(generators ...Generator) *FailbackGenerator {
	return &FailbackGenerator{generators: generators}
}

func (g *FailbackGenerator) GenerateReply(ctx context.Context, req *Request) (string, error) {
	var lastErr error
	for _, generator := range g.generators {
		reply, err := generator.GenerateReply(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all dialogue generators failed: %w", lastErr)
}
