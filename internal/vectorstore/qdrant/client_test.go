package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolabs/mnemo/internal/upstream"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	client, err := NewClient(&Config{
		Host:    u.Hostname(),
		Port:    port,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)

	return client, server
}

func TestHealthCheck(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		w.WriteHeader(http.StatusOK)
	}))

	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	var created bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/memories/exists":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]bool{"exists": false},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/collections/memories":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			vectors := body["vectors"].(map[string]interface{})
			assert.Equal(t, float64(1536), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
			created = true
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": true})
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	err := client.EnsureCollection(context.Background(), &CollectionConfig{
		Name:       "memories",
		VectorSize: 1536,
		Distance:   DistanceCosine,
	})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEnsureCollection_SkipsWhenPresent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			t.Fatal("collection should not be recreated")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]bool{"exists": true},
		})
	}))

	err := client.EnsureCollection(context.Background(), &CollectionConfig{
		Name:       "memories",
		VectorSize: 1536,
		Distance:   DistanceCosine,
	})
	assert.NoError(t, err)
}

func TestUpsertPoints_AssignsIDs(t *testing.T) {
	var gotPoints []Point
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/memories/points", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("wait"))

		var body struct {
			Points []Point `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotPoints = body.Points
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": map[string]string{"status": "completed"}})
	}))

	err := client.UpsertPoints(context.Background(), "memories", []Point{
		{Vector: []float32{0.1, 0.2}, Payload: map[string]interface{}{"user_id": "u1"}},
	})
	require.NoError(t, err)
	require.Len(t, gotPoints, 1)
	assert.NotEmpty(t, gotPoints[0].ID)
}

func TestSearch_WithUserFilter(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/memories/points/search", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		filter := body["filter"].(map[string]interface{})
		must := filter["must"].([]interface{})
		require.Len(t, must, 1)
		clause := must[0].(map[string]interface{})
		assert.Equal(t, "user_id", clause["key"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{"id": "p1", "score": 0.92, "payload": map[string]string{"user_id": "u1"}},
				{"id": "p2", "score": 0.81, "payload": map[string]string{"user_id": "u1"}},
			},
		})
	}))

	opts := DefaultSearchOptions()
	opts.Filter = UserFilter("u1")

	hits, err := client.Search(context.Background(), "memories", []float32{0.1, 0.2}, opts)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.InDelta(t, 0.92, hits[0].Score, 0.001)
}

func TestSearch_ServerErrorIsRetryable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))

	_, err := client.Search(context.Background(), "memories", []float32{0.1}, nil)
	require.Error(t, err)
	assert.True(t, upstream.IsRetryable(err))
}

func TestDeletePoints(t *testing.T) {
	var gotIDs []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/memories/points/delete", r.URL.Path)

		var body struct {
			Points []string `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotIDs = body.Points
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": map[string]string{"status": "completed"}})
	}))

	require.NoError(t, client.DeletePoints(context.Background(), "memories", []string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, gotIDs)

	// Empty delete never hits the server.
	assert.NoError(t, client.DeletePoints(context.Background(), "memories", nil))
}

func TestCountPoints(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/memories/points/count", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]int64{"count": 42},
		})
	}))

	count, err := client.CountPoints(context.Background(), "memories", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Host = ""
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Port = 0
	assert.Error(t, bad.Validate())

	assert.Equal(t, "http://localhost:6333", DefaultConfig().GetHTTPURL())
}
