// Package database provides the PostgreSQL layer for long term memory
// records, built on pgxpool.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
}

// DefaultConfig returns settings for a local PostgreSQL instance.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     5432,
		User:     "mnemo",
		Password: "mnemo",
		Name:     "mnemo",
		SSLMode:  "disable",
		MaxConns: 10,
	}
}

// ConnString builds a pgx connection string.
func (c Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// PostgresDB wraps a pgx connection pool.
type PostgresDB struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgresDB connects to PostgreSQL and verifies the connection.
func NewPostgresDB(ctx context.Context, cfg Config, logger *logrus.Logger) (*PostgresDB, error) {
	if logger == nil {
		logger = logrus.New()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host": cfg.Host,
		"name": cfg.Name,
	}).Info("Connected to PostgreSQL")

	return &PostgresDB{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool.
func (p *PostgresDB) Pool() *pgxpool.Pool {
	return p.pool
}

// HealthCheck pings the database with a short timeout.
func (p *PostgresDB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.pool.Ping(pingCtx)
}

// Close releases the connection pool.
func (p *PostgresDB) Close() {
	p.pool.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS memories (
		id UUID PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		agent_name VARCHAR(255) NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		memory_type VARCHAR(100) NOT NULL,
		importance INTEGER NOT NULL DEFAULT 0,
		vector_id VARCHAR(255) UNIQUE NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		accessed_count INTEGER NOT NULL DEFAULT 0,
		last_accessed_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_memories_user_id ON memories(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_user_type_created ON memories(user_id, memory_type, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_importance_created ON memories(importance, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_vector_id ON memories(vector_id)`,
}

// RunMigrations applies the schema statements in order. Statements are
// idempotent so reruns are safe.
func (p *PostgresDB) RunMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	p.logger.Info("Database migrations completed")
	return nil
}
