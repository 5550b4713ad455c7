package dialogue

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/aristotle-ai/quizflow/slots"
	"github.com/aristotle-ai/quizflow/types"
)

// DefaultClarifySystemPrompt steers an LLM-backed clarification reply.
const DefaultClarifySystemPrompt = `You are Aristotle, a friendly learning assistant helping a user set up a quiz generation request.

Reply conversationally, in one or two sentences:
- Ask only for the fields listed as missing. Never re-ask for values the user already provided.
- When at least one of several fields would do, offer the alternatives ("a topic, or upload your notes").
- Acknowledge what the user has already given you.
- No lists or bullet points; keep it like a real chat.`

// ToolBasedGenerator produces the clarifying reply with a chat model
// instead of the remote service.
type ToolBasedGenerator struct {
	systemPrompt string
	chatModel    model.BaseChatModel
}

func NewToolBasedGenerator(chatModel model.BaseChatModel, systemPrompt string) *ToolBasedGenerator {
	if systemPrompt == "" {
		systemPrompt = DefaultClarifySystemPrompt
	}
	return &ToolBasedGenerator{systemPrompt: systemPrompt, chatModel: chatModel}
}

func (g *ToolBasedGenerator) GenerateReply(ctx context.Context, req *Request) (string, error) {
	slotContext, err := types.FormatSlotContext(req.Slots, req.InputText, fieldInfos(req.MandatoryMissing, true), fieldInfos(req.OneOfMissing, false))
	if err != nil {
		return "", fmt.Errorf("build clarify context: %w", err)
	}
	systemPrompt := g.systemPrompt
	if req.SystemInstructions != "" {
		systemPrompt = systemPrompt + "\n\n" + req.SystemInstructions
	}
	response, err := g.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(slotContext),
	})
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	return response.Content, nil
}

func fieldInfos(names []string, required bool) []types.FieldInfo {
	infos := make([]types.FieldInfo, 0, len(names))
	for _, name := range names {
		info := types.FieldInfo{Name: name, DisplayName: name, Required: required}
		switch name {
		case slots.FieldNumQuestions:
			info.DisplayName = "number of questions"
		case slots.FieldGenerateNow:
			info.DisplayName = "go signal"
			info.Description = "the user must explicitly ask to generate"
		case slots.FieldPrompt:
			info.DisplayName = "topic prompt"
		case slots.FieldFiles:
			info.DisplayName = "uploaded material"
		}
		infos = append(infos, info)
	}
	return infos
}
