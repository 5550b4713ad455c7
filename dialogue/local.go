package dialogue

import (
	"context"
	"strings"

	"github.com/aristotle-ai/quizflow/slots"
)

// LocalGenerator builds a deterministic clarifying question from the unmet
// requirements. It asks only for what is still missing, so fields already
// filled are never re-requested.
type LocalGenerator struct{}

func (g *LocalGenerator) GenerateReply(ctx context.Context, req *Request) (string, error) {
	asks := make([]string, 0, 3)
	for _, field := range req.MandatoryMissing {
		switch field {
		case slots.FieldNumQuestions:
			asks = append(asks, "how many questions you would like")
		case slots.FieldGenerateNow:
			asks = append(asks, `a "generate now" from you once you are ready`)
		}
	}
	if len(req.OneOfMissing) > 0 {
		asks = append(asks, "a topic prompt, or an uploaded study material")
	}
	if len(asks) == 0 {
		return `Looks like I have everything I need. Say "confirm" when you want me to start.`, nil
	}
	return "To build your quiz I still need " + joinAsks(asks) + ".", nil
}

func joinAsks(asks []string) string {
	switch len(asks) {
	case 1:
		return asks[0]
	case 2:
		return asks[0] + " and " + asks[1]
	default:
		return strings.Join(asks[:len(asks)-1], ", ") + ", and " + asks[len(asks)-1]
	}
}
