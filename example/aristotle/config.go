package main

import (
	"os"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
)

type Config struct {
	// BackendURL is the base URL of the parsing, reply, generation and
	// upload endpoints.
	BackendURL string `json:"backend_url"`
	// StateDir holds the durable slot files. Empty means in-memory only.
	StateDir string `json:"state_dir"`

	// OpenAI-compatible model used for the tool-based extraction and
	// clarification failbacks. Optional; without an API key the session
	// falls back to the deterministic local clarifier only.
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

func loadConfig(path string) (*Config, error) {
	_ = godotenv.Load()
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Config
	if err := sonic.Unmarshal(file, &conf); err != nil {
		return nil, err
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && conf.APIKey == "" {
		conf.APIKey = key
	}
	if url := os.Getenv("QUIZFLOW_BACKEND_URL"); url != "" && conf.BackendURL == "" {
		conf.BackendURL = url
	}
	return &conf, nil
}
