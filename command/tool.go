package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const (
	parseCommandToolName        = "parse_command_intent"
	parseCommandToolDescription = "Analyze user input and determine command intent: confirm, cancel, none."
)

type parseCommandInput struct {
	Intent      Command `json:"intent" jsonschema:"required,enum=confirm,enum=cancel,enum=none,description=The user's command intent"`
	Explanation string  `json:"explanation,omitempty" jsonschema:"description=Brief reason"`
}

type parseCommandOutput struct {
	Success bool `json:"success"`
}

// ToolBasedParser classifies the input with an LLM through a forced tool
// call, catching confirmations and cancellations phrased too freely for
// keyword matching.
type ToolBasedParser struct {
	chatModel model.ToolCallingChatModel
}

func NewToolBasedParser(ctx context.Context, chatModel model.ToolCallingChatModel) (*ToolBasedParser, error) {
	toolFunc := func(ctx context.Context, input *parseCommandInput) (*parseCommandOutput, error) {
		return &parseCommandOutput{Success: true}, nil
	}
	parseTool, err := utils.InferTool(
		parseCommandToolName,
		parseCommandToolDescription,
		toolFunc,
	)
	if err != nil {
		return nil, err
	}
	toolInfo, err := parseTool.Info(ctx)
	if err != nil {
		return nil, err
	}
	modelWithTools, err := chatModel.WithTools([]*schema.ToolInfo{toolInfo})
	if err != nil {
		return nil, err
	}
	return &ToolBasedParser{chatModel: modelWithTools}, nil
}

func (p *ToolBasedParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	systemPrompt := fmt.Sprintf(`You are a command intent recognizer for a quiz assistant awaiting go-ahead.
You MUST call the tool %s and provide JSON arguments that match the tool schema.
Return:
- confirm: user approves starting the quiz generation now
- cancel: user wants to hold off, change something, or abort
- none: user is providing information or other actions`, parseCommandToolName)

	resp, err := p.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(input),
	})
	if err != nil {
		return None, err
	}

	var args string
	for _, tc := range resp.ToolCalls {
		if tc.Function.Name == parseCommandToolName {
			args = tc.Function.Arguments
			break
		}
	}
	if args == "" {
		return None, fmt.Errorf("model did not call %s tool", parseCommandToolName)
	}

	var cmdInput parseCommandInput
	if err := sonic.UnmarshalString(args, &cmdInput); err != nil {
		return None, fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	switch cmdInput.Intent {
	case Confirm, Cancel, None:
		return cmdInput.Intent, nil
	default:
		return None, nil
	}
}

// FailbackParser tries the keyword parser first and only consults the next
// parser when it sees no explicit command.
type FailbackParser struct {
	parsers []Parser
}

func NewFailbackParser(parsers ...Parser) *FailbackParser {
	return &FailbackParser{parsers: parsers}
}

func (p *FailbackParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	for _, parser := range p.parsers {
		cmd, err := parser.ParseCommand(ctx, input)
		if err != nil {
			slog.Error("command parser failed", "err", err)
			continue
		}
		if cmd != None {
			return cmd, nil
		}
	}
	return None, nil
}
