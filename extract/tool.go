package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/aristotle-ai/quizflow/slots"
	"github.com/aristotle-ai/quizflow/structured"
)

const (
	extractSlotsToolName        = "extract_quiz_slots"
	extractSlotsToolDescription = "Record the quiz request values explicitly stated by the user. Omit every field the user did not clearly provide."
)

// Pointer fields so that "not mentioned this turn" stays distinguishable
// from a zero value.
type extractedSlots struct {
	NumQuestions *int    `json:"num_questions,omitempty" jsonschema:"description=Number of questions the user asked for"`
	Prompt       *string `json:"prompt,omitempty" jsonschema:"description=Topic or prompt the quiz should cover"`
	GenerateNow  *bool   `json:"generate_now,omitempty" jsonschema:"description=True only if the user asked to generate now"`
}

// ToolBasedExtractor runs the extraction locally through a tool-calling
// chat model instead of the remote service.
type ToolBasedExtractor struct {
	chain *structured.Chain[*extractInput, extractedSlots]
}

type extractInput struct {
	inputText string
	fields    []FieldSpec
}

func NewToolBasedExtractor(chatModel model.ToolCallingChatModel) (*ToolBasedExtractor, error) {
	chain, err := structured.NewChain[*extractInput, extractedSlots](
		chatModel,
		buildExtractPrompt,
		extractSlotsToolName,
		extractSlotsToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedExtractor{chain: chain}, nil
}

func (e *ToolBasedExtractor) Extract(ctx context.Context, inputText string, fields []FieldSpec) (slots.ParsedFields, error) {
	result, err := e.chain.Invoke(ctx, &extractInput{inputText: inputText, fields: fields})
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	parsed := slots.ParsedFields{}
	if result.NumQuestions != nil {
		parsed[slots.FieldNumQuestions] = *result.NumQuestions
	}
	if result.Prompt != nil {
		parsed[slots.FieldPrompt] = *result.Prompt
	}
	if result.GenerateNow != nil {
		parsed[slots.FieldGenerateNow] = *result.GenerateNow
	}
	if len(parsed) == 0 {
		return nil, nil
	}
	return parsed, nil
}

func buildExtractPrompt(ctx context.Context, input *extractInput) ([]*schema.Message, error) {
	systemPrompt := fmt.Sprintf("You extract structured quiz request fields from a single chat message. Call %s with only the fields the user explicitly stated. Never guess, never invent filenames.", extractSlotsToolName)

	var sb strings.Builder
	sb.WriteString("# Expected fields:\n")
	for _, field := range input.fields {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", field.Name, field.Type, field.Description)
	}
	fmt.Fprintf(&sb, "\n# User message:\n%s", input.inputText)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(sb.String()),
	}, nil
}
