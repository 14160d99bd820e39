package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mnemolabs/mnemo/internal/upstream"
)

// Client talks to the Qdrant REST API.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a Qdrant client. A nil config uses defaults, a nil
// logger falls back to a default logrus instance.
func NewClient(config *Config, logger *logrus.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// HealthCheck probes the root endpoint. The /health path was removed in
// Qdrant 1.16, the root works on all versions.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.GetHTTPURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstream.NewTransport("qdrant.health", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return upstream.NewStatus("qdrant.health", resp.StatusCode, fmt.Errorf("unhealthy"))
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, body interface{}) ([]byte, error) {
	url := c.config.GetHTTPURL() + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstream.NewTransport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstream.NewTransport(op, err)
	}

	if resp.StatusCode >= 400 {
		return nil, upstream.NewStatus(op, resp.StatusCode,
			fmt.Errorf("qdrant error: %s", string(respBody)))
	}

	return respBody, nil
}

// CollectionExists reports whether a collection is present.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	path := fmt.Sprintf("/collections/%s/exists", name)
	respBody, err := c.doRequest(ctx, "qdrant.collection_exists", http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	var response struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return false, upstream.NewDecode("qdrant.collection_exists", err)
	}

	return response.Result.Exists, nil
}

// CreateCollection creates a vector collection.
func (c *Client) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid collection config: %w", err)
	}

	reqBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     config.VectorSize,
			"distance": string(config.Distance),
		},
	}

	path := fmt.Sprintf("/collections/%s", config.Name)
	if _, err := c.doRequest(ctx, "qdrant.create_collection", http.MethodPut, path, reqBody); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	c.logger.WithField("collection", config.Name).Info("Collection created")
	return nil
}

// EnsureCollection creates the collection if it does not already exist.
func (c *Client) EnsureCollection(ctx context.Context, config *CollectionConfig) error {
	exists, err := c.CollectionExists(ctx, config.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.CreateCollection(ctx, config)
}

// DeleteCollection removes a collection and all its points.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	path := fmt.Sprintf("/collections/%s", name)
	if _, err := c.doRequest(ctx, "qdrant.delete_collection", http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	c.logger.WithField("collection", name).Info("Collection deleted")
	return nil
}

// Point is a vector with its payload.
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// UpsertPoints inserts or replaces points. Points without an ID get a
// generated UUID.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	for i := range points {
		if points[i].ID == "" {
			points[i].ID = uuid.New().String()
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	reqBody := map[string]interface{}{"points": points}
	if _, err := c.doRequest(ctx, "qdrant.upsert", http.MethodPut, path, reqBody); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"collection": collection,
		"count":      len(points),
	}).Debug("Points upserted")

	return nil
}

// DeletePoints removes points by ID.
func (c *Client) DeletePoints(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collection)
	reqBody := map[string]interface{}{"points": ids}
	if _, err := c.doRequest(ctx, "qdrant.delete", http.MethodPost, path, reqBody); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"collection": collection,
		"count":      len(ids),
	}).Debug("Points deleted")

	return nil
}

// Search runs a similarity query, most similar first.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, opts *SearchOptions) ([]ScoredPoint, error) {
	if opts == nil {
		opts = DefaultSearchOptions()
	}

	reqBody := map[string]interface{}{
		"vector":       vector,
		"limit":        opts.Limit,
		"offset":       opts.Offset,
		"with_payload": opts.WithPayload,
	}
	if opts.ScoreThreshold > 0 {
		reqBody["score_threshold"] = opts.ScoreThreshold
	}
	if opts.Filter != nil {
		reqBody["filter"] = opts.Filter
	}

	path := fmt.Sprintf("/collections/%s/points/search", collection)
	respBody, err := c.doRequest(ctx, "qdrant.search", http.MethodPost, path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var response struct {
		Result []ScoredPoint `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, upstream.NewDecode("qdrant.search", err)
	}

	return response.Result, nil
}

// CountPoints returns the exact point count, optionally filtered.
func (c *Client) CountPoints(ctx context.Context, collection string, filter map[string]interface{}) (int64, error) {
	reqBody := map[string]interface{}{"exact": true}
	if filter != nil {
		reqBody["filter"] = filter
	}

	path := fmt.Sprintf("/collections/%s/points/count", collection)
	respBody, err := c.doRequest(ctx, "qdrant.count", http.MethodPost, path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	var response struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return 0, upstream.NewDecode("qdrant.count", err)
	}

	return response.Result.Count, nil
}
