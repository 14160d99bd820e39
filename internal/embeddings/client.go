// Package embeddings provides an HTTP client for OpenAI-compatible
// embedding endpoints. Long term memory uses it to vectorize content
// before indexing.
package embeddings

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

// Config holds connection settings for the embedding service.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DefaultConfig returns settings for a local OpenAI-compatible server.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.openai.com/v1",
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		Timeout:   30 * time.Second,
	}
}

// Validate checks that required fields are set.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("embedding base URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

// Client talks to a single embedding endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates an embedding client. A nil logger falls back to a
// default logrus instance.
func NewClient(config Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Dimension returns the configured vector width.
func (c *Client) Dimension() int {
	return c.config.Dimension
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed vectorizes a batch of texts in a single call. The result holds
// one vector per input, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "embeddings.embed"

	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}

	start := time.Now()

	reqBody := embeddingRequest{
		Input:          texts,
		Model:          c.config.Model,
		EncodingFormat: "float",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstream.NewTransport(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstream.NewTransport(op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, upstream.NewStatus(op, resp.StatusCode,
			fmt.Errorf("embedding API error: %s", truncateBody(respBody)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, upstream.NewDecode(op, fmt.Errorf("failed to parse embedding response: %w", err))
	}
	if len(parsed.Data) != len(texts) {
		return nil, upstream.NewDecode(op,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, upstream.NewDecode(op, fmt.Errorf("embedding index %d out of range", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}

	c.logger.WithFields(logrus.Fields{
		"model":       c.config.Model,
		"batch_size":  len(texts),
		"tokens_used": parsed.Usage.TotalTokens,
		"duration":    time.Since(start),
	}).Debug("Embeddings generated")

	return vectors, nil
}

// EmbedQuery vectorizes a single query string.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// truncateBody keeps error payloads short enough to log.
func truncateBody(body []byte) string {
	const maxLen = 512
	s := string(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
