package dialogue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

const generateReplyPath = "/api/generate_reply"

// RemoteGenerator asks the reply-generation service for a clarifying
// message targeting exactly the missing fields.
type RemoteGenerator struct {
	baseURL string
	client  *http.Client
}

func NewRemoteGenerator(baseURL string, client *http.Client) *RemoteGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteGenerator{baseURL: baseURL, client: client}
}

type replyRequest struct {
	InputText            string   `json:"input_text"`
	MandatoryEmptyValues []string `json:"mandatory_empty_values"`
	OneOfEmptyValues     []string `json:"one_of_empty_values"`
	SystemInstructions   string   `json:"system_instructions,omitempty"`
}

type replyResponse struct {
	ChatResponse string `json:"chat_response"`
	Error        any    `json:"error,omitempty"`
}

func (g *RemoteGenerator) GenerateReply(ctx context.Context, req *Request) (string, error) {
	payload, err := sonic.Marshal(replyRequest{
		InputText:            req.InputText,
		MandatoryEmptyValues: req.MandatoryMissing,
		OneOfEmptyValues:     req.OneOfMissing,
		SystemInstructions:   req.SystemInstructions,
	})
	if err != nil {
		return "", fmt.Errorf("marshal reply request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+generateReplyPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generate_reply call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generate_reply body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate_reply returned status %d: %s", resp.StatusCode, body)
	}

	var decoded replyResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode generate_reply body: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("generate_reply reported error: %v", decoded.Error)
	}
	if decoded.ChatResponse == "" {
		return "", fmt.Errorf("generate_reply returned an empty chat_response")
	}
	return decoded.ChatResponse, nil
}
