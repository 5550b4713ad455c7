package generate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

const (
	generatePath = "/api/generate_mcq"
	savePath     = "/api/save"
)

// RemoteClient talks to the question-generation and save services.
type RemoteClient struct {
	baseURL string
	client  *http.Client
}

func NewRemoteClient(baseURL string, client *http.Client) *RemoteClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteClient{baseURL: baseURL, client: client}
}

type generateRequest struct {
	NumQuestions int    `json:"num_questions"`
	Prompt       string `json:"prompt"`
}

func (c *RemoteClient) Generate(ctx context.Context, numQuestions int, prompt string) (any, error) {
	body, err := c.postJSON(ctx, generatePath, generateRequest{NumQuestions: numQuestions, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	var data any
	if err := sonic.Unmarshal(body, &data); err != nil {
		// Some backends answer with bare model text.
		return string(body), nil
	}
	if m, ok := data.(map[string]any); ok {
		if msg, found := m["error"]; found {
			return nil, fmt.Errorf("generation service reported error: %v", msg)
		}
	}
	return data, nil
}

type saveResponse struct {
	Key   string `json:"key"`
	Error any    `json:"error,omitempty"`
}

func (c *RemoteClient) Save(ctx context.Context, req *SaveRequest) (string, error) {
	body, err := c.postJSON(ctx, savePath, req)
	if err != nil {
		return "", err
	}
	var decoded saveResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode save response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("save service reported error: %v", decoded.Error)
	}
	if decoded.Key == "" {
		decoded.Key = req.Filename
	}
	return decoded.Key, nil
}

func (c *RemoteClient) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, body)
	}
	return body, nil
}
