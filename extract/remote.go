package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/aristotle-ai/quizflow/slots"
)

const parseResponsePath = "/api/parse_response"

// RemoteExtractor posts one turn plus the field schema to the extraction
// service.
type RemoteExtractor struct {
	baseURL string
	client  *http.Client
}

func NewRemoteExtractor(baseURL string, client *http.Client) *RemoteExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteExtractor{baseURL: baseURL, client: client}
}

type parseRequest struct {
	InputText      string     `json:"input_text"`
	ExpectedOutput [][]string `json:"expected_output"`
}

func (e *RemoteExtractor) Extract(ctx context.Context, inputText string, fields []FieldSpec) (slots.ParsedFields, error) {
	expected := make([][]string, 0, len(fields))
	for _, field := range fields {
		expected = append(expected, field.triple())
	}
	payload, err := sonic.Marshal(parseRequest{InputText: inputText, ExpectedOutput: expected})
	if err != nil {
		return nil, fmt.Errorf("marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+parseResponsePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse_response call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read parse_response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("parse_response returned status %d: %s", resp.StatusCode, body)
	}

	var data map[string]any
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode parse_response body: %w", err)
	}
	if msg, ok := data["error"]; ok {
		return nil, fmt.Errorf("parse_response reported error: %v", msg)
	}
	// A raw fallback means the model produced no structured fields.
	if _, ok := data["raw"]; ok {
		return nil, nil
	}
	if parsed, ok := data["parsed"].(map[string]any); ok {
		return slots.ParsedFields(parsed), nil
	}
	return slots.ParsedFields(data), nil
}
