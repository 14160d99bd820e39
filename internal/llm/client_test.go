package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolabs/mnemo/internal/upstream"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, 10, req.MaxTokens)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "85"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"total_tokens": 12},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	out, err := client.Complete(context.Background(), "Rate this memory", 10)
	require.NoError(t, err)
	assert.Equal(t, "85", out)
}

func TestComplete_EmptyPrompt(t *testing.T) {
	client := NewClient(testConfig("http://localhost:1"), nil)

	_, err := client.Complete(context.Background(), "", 10)
	assert.Error(t, err)
}

func TestComplete_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	_, err := client.Complete(context.Background(), "prompt", 10)
	require.Error(t, err)
	assert.True(t, upstream.IsRetryable(err))
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	_, err := client.Complete(context.Background(), "prompt", 10)
	require.Error(t, err)
	assert.False(t, upstream.IsRetryable(err))
}
