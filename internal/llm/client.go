// Package llm provides a minimal chat-completion client. The long term
// store uses it to score memory importance.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mnemolabs/mnemo/internal/upstream"
)

// Config holds connection settings for the completion service.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns settings for the OpenAI chat completions API.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: 60 * time.Second,
	}
}

// Validate checks that required fields are set.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("completion base URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("completion model is required")
	}
	return nil
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a completion client. A nil logger falls back to a
// default logrus instance.
func NewClient(config Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends a single-turn prompt and returns the model's text reply.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	const op = "completion.complete"

	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	start := time.Now()

	body, err := json.Marshal(completionRequest{
		Model:     c.config.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", upstream.NewTransport(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", upstream.NewTransport(op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", upstream.NewStatus(op, resp.StatusCode,
			fmt.Errorf("completion API error: %s", string(respBody)))
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", upstream.NewDecode(op, fmt.Errorf("failed to parse completion response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", upstream.NewDecode(op, fmt.Errorf("no choices in completion response"))
	}

	c.logger.WithFields(logrus.Fields{
		"model":       c.config.Model,
		"tokens_used": parsed.Usage.TotalTokens,
		"duration":    time.Since(start),
	}).Debug("Completion generated")

	return parsed.Choices[0].Message.Content, nil
}
