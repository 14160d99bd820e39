// Package qdrant is a thin HTTP client for the Qdrant REST API, covering
// the collection and point operations the memory index needs.
package qdrant

import (
	"fmt"
	"time"
)

// Distance is the similarity metric for a collection.
type Distance string

const (
	DistanceCosine    Distance = "Cosine"
	DistanceEuclidean Distance = "Euclid"
	DistanceDot       Distance = "Dot"
)

// Config holds connection settings for a Qdrant instance.
type Config struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	APIKey  string        `yaml:"api_key"`
	UseTLS  bool          `yaml:"use_tls"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns settings for a local Qdrant instance.
func DefaultConfig() *Config {
	return &Config{
		Host:    "localhost",
		Port:    6333,
		Timeout: 30 * time.Second,
	}
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("qdrant host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d", c.Port)
	}
	return nil
}

// GetHTTPURL returns the base URL for REST requests.
func (c *Config) GetHTTPURL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// CollectionConfig describes a collection to create.
type CollectionConfig struct {
	Name       string
	VectorSize int
	Distance   Distance
}

// Validate checks the collection parameters.
func (c *CollectionConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("vector size must be positive, got %d", c.VectorSize)
	}
	if c.Distance == "" {
		return fmt.Errorf("distance metric is required")
	}
	return nil
}

// SearchOptions controls a similarity search.
type SearchOptions struct {
	Limit          int
	Offset         int
	ScoreThreshold float32
	WithPayload    bool
	Filter         map[string]interface{}
}

// DefaultSearchOptions returns the standard search parameters.
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		Limit:       10,
		WithPayload: true,
	}
}

// UserFilter builds a payload filter restricting results to one user.
func UserFilter(userID string) map[string]interface{} {
	return map[string]interface{}{
		"must": []map[string]interface{}{
			{
				"key":   "user_id",
				"match": map[string]interface{}{"value": userID},
			},
		},
	}
}
