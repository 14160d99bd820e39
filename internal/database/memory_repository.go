package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a memory row does not exist.
var ErrNotFound = errors.New("memory not found")

// MemoryRecord is the relational row backing a long term memory.
type MemoryRecord struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	AgentName      string                 `json:"agent_name"`
	Content        string                 `json:"content"`
	MemoryType     string                 `json:"memory_type"`
	Importance     int                    `json:"importance"`
	VectorID       string                 `json:"vector_id"`
	Metadata       map[string]interface{} `json:"metadata"`
	AccessedCount  int                    `json:"accessed_count"`
	LastAccessedAt *time.Time             `json:"last_accessed_at"`
	CreatedAt      time.Time              `json:"created_at"`
}

// MemoryRepository handles memory row persistence.
type MemoryRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewMemoryRepository creates a repository backed by the given pool.
func NewMemoryRepository(pool *pgxpool.Pool, log *logrus.Logger) *MemoryRepository {
	if log == nil {
		log = logrus.New()
	}
	return &MemoryRepository{pool: pool, log: log}
}

const memoryColumns = `id, user_id, agent_name, content, memory_type, importance,
	vector_id, metadata, accessed_count, last_accessed_at, created_at`

// Insert stores a new memory row.
func (r *MemoryRepository) Insert(ctx context.Context, rec *MemoryRecord) error {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal memory metadata: %w", err)
	}

	query := `
		INSERT INTO memories (id, user_id, agent_name, content, memory_type, importance, vector_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.AgentName, rec.Content, rec.MemoryType,
		rec.Importance, rec.VectorID, metadataJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	return nil
}

func scanMemory(row pgx.Row) (*MemoryRecord, error) {
	rec := &MemoryRecord{}
	var metadataJSON []byte

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.AgentName, &rec.Content, &rec.MemoryType,
		&rec.Importance, &rec.VectorID, &metadataJSON, &rec.AccessedCount,
		&rec.LastAccessedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
			rec.Metadata = make(map[string]interface{})
		}
	}

	return rec, nil
}

func (r *MemoryRepository) scanRows(rows pgx.Rows) ([]*MemoryRecord, error) {
	defer rows.Close()

	records := []*MemoryRecord{}
	for rows.Next() {
		rec, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memory rows: %w", err)
	}

	return records, nil
}

// GetByID retrieves a single memory owned by userID.
func (r *MemoryRepository) GetByID(ctx context.Context, userID, id string) (*MemoryRecord, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1 AND user_id = $2`

	rec, err := scanMemory(r.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}

	return rec, nil
}

// ListByVectorIDs retrieves the rows behind a set of vector hits, newest
// first.
func (r *MemoryRepository) ListByVectorIDs(ctx context.Context, userID string, vectorIDs []string) ([]*MemoryRecord, error) {
	if len(vectorIDs) == 0 {
		return []*MemoryRecord{}, nil
	}

	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE user_id = $1 AND vector_id = ANY($2)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, vectorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories by vector ids: %w", err)
	}

	return r.scanRows(rows)
}

// ListRecent returns the newest memories for a user, optionally filtered
// by memory type.
func (r *MemoryRepository) ListRecent(ctx context.Context, userID, memoryType string, limit int) ([]*MemoryRecord, error) {
	if limit <= 0 {
		limit = 5
	}

	var (
		rows pgx.Rows
		err  error
	)
	if memoryType != "" {
		query := `
			SELECT ` + memoryColumns + `
			FROM memories
			WHERE user_id = $1 AND memory_type = $2
			ORDER BY created_at DESC
			LIMIT $3
		`
		rows, err = r.pool.Query(ctx, query, userID, memoryType, limit)
	} else {
		query := `
			SELECT ` + memoryColumns + `
			FROM memories
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err = r.pool.Query(ctx, query, userID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memories: %w", err)
	}

	return r.scanRows(rows)
}

// UpdateAccess bumps the access counter and timestamp for a memory the
// user owns. Returns the number of rows touched so callers can detect a
// miss without treating it as an error.
func (r *MemoryRepository) UpdateAccess(ctx context.Context, userID, id string) (int64, error) {
	query := `
		UPDATE memories
		SET accessed_count = accessed_count + 1, last_accessed_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to update memory access: %w", err)
	}

	return tag.RowsAffected(), nil
}

// UpdateImportance sets the importance score for a memory.
func (r *MemoryRepository) UpdateImportance(ctx context.Context, id string, importance int) error {
	query := `UPDATE memories SET importance = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, importance)
	if err != nil {
		return fmt.Errorf("failed to update memory importance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListOlderThan returns memories created strictly before cutoff.
func (r *MemoryRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*MemoryRecord, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE created_at < $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list old memories: %w", err)
	}

	return r.scanRows(rows)
}

// DeleteByIDs removes memories in a single statement and returns the
// number of rows deleted.
func (r *MemoryRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM memories WHERE id = ANY($1)`
	tag, err := r.pool.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memories: %w", err)
	}

	r.log.WithField("count", tag.RowsAffected()).Debug("Memories deleted")
	return tag.RowsAffected(), nil
}
