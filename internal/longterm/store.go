// Package longterm implements durable semantic memory. Content is
// embedded, indexed in Qdrant, and mirrored into PostgreSQL, which holds
// the authoritative copy.
package longterm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mnemolabs/mnemo/internal/database"
	"github.com/mnemolabs/mnemo/internal/vectorstore/qdrant"
)

// DefaultCollection is the Qdrant collection holding memory vectors.
const DefaultCollection = "memories"

// contentPreviewLen caps the content copy carried in vector payloads.
const contentPreviewLen = 250

// Embedder vectorizes text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimension() int
}

// VectorIndex is the similarity index holding memory vectors.
type VectorIndex interface {
	UpsertPoints(ctx context.Context, collection string, points []qdrant.Point) error
	DeletePoints(ctx context.Context, collection string, ids []string) error
	Search(ctx context.Context, collection string, vector []float32, opts *qdrant.SearchOptions) ([]qdrant.ScoredPoint, error)
}

// Repository is the relational side of memory storage.
type Repository interface {
	Insert(ctx context.Context, rec *database.MemoryRecord) error
	GetByID(ctx context.Context, userID, id string) (*database.MemoryRecord, error)
	ListByVectorIDs(ctx context.Context, userID string, vectorIDs []string) ([]*database.MemoryRecord, error)
	ListRecent(ctx context.Context, userID, memoryType string, limit int) ([]*database.MemoryRecord, error)
	UpdateAccess(ctx context.Context, userID, id string) (int64, error)
	UpdateImportance(ctx context.Context, id string, importance int) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*database.MemoryRecord, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// CompletionClient scores memory importance.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Memory is a stored long term memory as seen by callers.
type Memory struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	AgentName      string                 `json:"agent_name,omitempty"`
	Content        string                 `json:"content"`
	MemoryType     string                 `json:"memory_type"`
	Importance     int                    `json:"importance"`
	Score          float32                `json:"score,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	AccessedCount  int                    `json:"accessed_count"`
	LastAccessedAt *time.Time             `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// RetrieveResult carries search hits plus a degraded marker set when an
// upstream failure forced an empty answer.
type RetrieveResult struct {
	Memories []Memory `json:"memories"`
	Degraded bool     `json:"degraded"`
}

// Store coordinates the embedder, the vector index, and the relational
// repository.
type Store struct {
	embedder   Embedder
	index      VectorIndex
	repo       Repository
	completion CompletionClient
	collection string
	logger     *logrus.Logger
}

// NewStore creates a long term store. The completion client may be nil,
// in which case importance scoring is unavailable.
func NewStore(embedder Embedder, index VectorIndex, repo Repository, completion CompletionClient, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		embedder:   embedder,
		index:      index,
		repo:       repo,
		completion: completion,
		collection: DefaultCollection,
		logger:     logger,
	}
}

// Store persists a memory: embed, index the vector, then insert the row.
// If the relational insert fails the vector point is deleted so the two
// stores cannot disagree about what exists. Importance is clamped to
// 0..100; pass 0 when the score is not yet known.
func (s *Store) Store(ctx context.Context, userID, agentName, content, memoryType string, importance int, metadata map[string]interface{}) (*Memory, error) {
	if content == "" {
		return nil, fmt.Errorf("memory content is required")
	}
	if memoryType == "" {
		return nil, fmt.Errorf("memory type is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	importance = clampImportance(importance)

	vectors, err := s.embedder.Embed(ctx, []string{content})
	if err != nil {
		return nil, fmt.Errorf("failed to embed memory: %w", err)
	}
	vector := vectors[0]

	if dim := s.embedder.Dimension(); dim > 0 && len(vector) != dim {
		s.logger.WithFields(logrus.Fields{
			"expected": dim,
			"got":      len(vector),
		}).Warn("Embedding dimension differs from configured dimension")
	}

	id := uuid.New().String()
	vectorID := uuid.New().String()
	now := time.Now().UTC()

	metadataJSON := []byte("{}")
	if metadata != nil {
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal memory metadata: %w", err)
		}
	}

	point := qdrant.Point{
		ID:     vectorID,
		Vector: vector,
		Payload: map[string]interface{}{
			"memory_id":     id,
			"user_id":       userID,
			"agent_name":    agentName,
			"memory_type":   memoryType,
			"importance":    importance,
			"content":       preview(content),
			"metadata_json": string(metadataJSON),
			"created_at":    now.Format(time.RFC3339),
		},
	}
	if err := s.index.UpsertPoints(ctx, s.collection, []qdrant.Point{point}); err != nil {
		return nil, fmt.Errorf("failed to index memory vector: %w", err)
	}

	rec := &database.MemoryRecord{
		ID:         id,
		UserID:     userID,
		AgentName:  agentName,
		Content:    content,
		MemoryType: memoryType,
		Importance: importance,
		VectorID:   vectorID,
		Metadata:   metadata,
		CreatedAt:  now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		// Roll back the vector point so the index holds no orphans.
		if delErr := s.index.DeletePoints(ctx, s.collection, []string{vectorID}); delErr != nil {
			s.logger.WithError(delErr).WithField("vector_id", vectorID).
				Error("Failed to roll back orphaned vector point")
		}
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"memory_id":   id,
		"user_id":     userID,
		"memory_type": memoryType,
	}).Debug("Memory stored")

	return recordToMemory(rec, 0), nil
}

// Retrieve runs a semantic search scoped to one user. When the embedder
// or the index is down the result is empty and marked degraded rather
// than failing the caller.
func (s *Store) Retrieve(ctx context.Context, userID, query string, limit int) (*RetrieveResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		limit = 5
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.WithError(err).Warn("Embedding unavailable, returning degraded result")
		return &RetrieveResult{Memories: []Memory{}, Degraded: true}, nil
	}

	opts := qdrant.DefaultSearchOptions()
	opts.Limit = limit
	opts.Filter = qdrant.UserFilter(userID)

	hits, err := s.index.Search(ctx, s.collection, vector, opts)
	if err != nil {
		s.logger.WithError(err).Warn("Vector search unavailable, returning degraded result")
		return &RetrieveResult{Memories: []Memory{}, Degraded: true}, nil
	}
	if len(hits) == 0 {
		return &RetrieveResult{Memories: []Memory{}}, nil
	}

	vectorIDs := make([]string, len(hits))
	scores := make(map[string]float32, len(hits))
	for i, hit := range hits {
		vectorIDs[i] = hit.ID
		scores[hit.ID] = hit.Score
	}

	records, err := s.repo.ListByVectorIDs(ctx, userID, vectorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}

	result := &RetrieveResult{Memories: make([]Memory, 0, len(records))}
	for _, rec := range records {
		result.Memories = append(result.Memories, *recordToMemory(rec, scores[rec.VectorID]))
	}

	return result, nil
}

// GetRecent returns a user's newest memories straight from the
// relational store, no embedding involved.
func (s *Store) GetRecent(ctx context.Context, userID, memoryType string, limit int) ([]Memory, error) {
	records, err := s.repo.ListRecent(ctx, userID, memoryType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memories: %w", err)
	}

	memories := make([]Memory, 0, len(records))
	for _, rec := range records {
		memories = append(memories, *recordToMemory(rec, 0))
	}
	return memories, nil
}

// UpdateAccess bumps access stats for a memory. A miss, including an
// id owned by another user, is logged and ignored.
func (s *Store) UpdateAccess(ctx context.Context, userID, memoryID string) error {
	affected, err := s.repo.UpdateAccess(ctx, userID, memoryID)
	if err != nil {
		return fmt.Errorf("failed to update memory access: %w", err)
	}
	if affected == 0 {
		s.logger.WithFields(logrus.Fields{
			"memory_id": memoryID,
			"user_id":   userID,
		}).Debug("Access update matched no memory")
	}
	return nil
}

// CalculateImportance loads the memory the user owns, asks the
// completion model to score it from 0 to 100, and persists the result.
// Scores outside the range are clamped, an unusable reply persists 0.
func (s *Store) CalculateImportance(ctx context.Context, userID, memoryID string) (int, error) {
	if s.completion == nil {
		return 0, fmt.Errorf("no completion client configured")
	}

	rec, err := s.repo.GetByID(ctx, userID, memoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to load memory for scoring: %w", err)
	}

	prompt := fmt.Sprintf(
		"Rate the long-term importance of this memory on a scale from 0 to 100. "+
			"Reply with only the number.\n\nMemory: %s", rec.Content)

	importance := 0
	reply, err := s.completion.Complete(ctx, prompt, 8)
	if err != nil {
		s.logger.WithError(err).WithField("memory_id", memoryID).
			Warn("Importance scoring failed, persisting zero")
	} else {
		importance = parseImportance(reply)
	}

	if err := s.repo.UpdateImportance(ctx, memoryID, importance); err != nil {
		return 0, fmt.Errorf("failed to persist importance: %w", err)
	}

	return importance, nil
}

// CleanupOldMemories deletes memories created before the age cutoff from
// both stores. Vector deletes are best effort, the relational delete is
// a single statement. A non-positive maxAgeDays deletes nothing.
func (s *Store) CleanupOldMemories(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		s.logger.WithField("max_age_days", maxAgeDays).
			Warn("Cleanup skipped, retention must be positive")
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	records, err := s.repo.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired memories: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]string, len(records))
	vectorIDs := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		vectorIDs[i] = rec.VectorID
	}

	if err := s.index.DeletePoints(ctx, s.collection, vectorIDs); err != nil {
		s.logger.WithError(err).Warn("Failed to delete expired vectors, rows will still be removed")
	}

	deleted, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired memories: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  cutoff,
	}).Info("Expired memories cleaned up")

	return deleted, nil
}

func recordToMemory(rec *database.MemoryRecord, score float32) *Memory {
	return &Memory{
		ID:             rec.ID,
		UserID:         rec.UserID,
		AgentName:      rec.AgentName,
		Content:        rec.Content,
		MemoryType:     rec.MemoryType,
		Importance:     rec.Importance,
		Score:          score,
		Metadata:       rec.Metadata,
		AccessedCount:  rec.AccessedCount,
		LastAccessedAt: rec.LastAccessedAt,
		CreatedAt:      rec.CreatedAt,
	}
}

// preview truncates content for the vector payload without splitting a
// multi-byte rune.
func preview(content string) string {
	if len(content) <= contentPreviewLen {
		return content
	}
	cut := contentPreviewLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func clampImportance(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// parseImportance extracts a clamped 0..100 score from a model reply.
func parseImportance(reply string) int {
	fields := strings.Fields(strings.TrimSpace(reply))
	if len(fields) == 0 {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
	if err != nil {
		return 0
	}
	return clampImportance(n)
}
