// Package agent hosts the conversation session: durable slot state, the
// confirmation gate, the generation pipeline, and the lifecycle registry
// that cancels in-flight calls on shutdown.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"

	"github.com/aristotle-ai/quizflow/types"
)

var _ adk.Agent = (*Agent)(nil)

// Agent adapts a Session to the adk.Agent interface so it can join eino
// agent graphs. Each Run takes the last input message as the user turn and
// emits the session's replies joined as one assistant message.
type Agent struct {
	name        string
	description string
	session     *Session
}

func NewAgent(name, description string, session *Session) *Agent {
	return &Agent{
		name:        name,
		description: description,
		session:     session,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("no messages in input"),
			})
			return
		}
		replies, err := a.session.HandleTurn(ctx, input.Messages[len(input.Messages)-1].Content)
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("handle turn failed: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message: &schema.Message{
						Role:    schema.Assistant,
						Content: joinReplies(replies),
					},
					Role: schema.Assistant,
				},
			},
		})
	}()
	return iter
}

func joinReplies(replies []types.Message) string {
	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		parts = append(parts, r.Content)
	}
	return strings.Join(parts, "\n\n")
}
