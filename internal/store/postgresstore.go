package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultTokenTable = "github_tokens"

// PostgresStoreConfig captures configuration for the Postgres-backed token store.
type PostgresStoreConfig struct {
	DSN    string
	Schema string
	Table  string
}

// PostgresTokenStore persists token records in PostgreSQL so the gateway can
// run on hosts without durable disks.
type PostgresTokenStore struct {
	db  *sql.DB
	cfg PostgresStoreConfig
	mu  sync.Mutex
}

// NewPostgresTokenStore connects to PostgreSQL and prepares the token table.
func NewPostgresTokenStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresTokenStore, error) {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres store: DSN is required")
	}
	if cfg.Table == "" {
		cfg.Table = defaultTokenTable
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres store: ping database: %w", err)
	}

	s := &PostgresTokenStore{db: db, cfg: cfg}
	if err = s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *PostgresTokenStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresTokenStore) ensureSchema(ctx context.Context) error {
	if schema := strings.TrimSpace(s.cfg.Schema); schema != "" {
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(schema))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres store: create schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.tableName())); err != nil {
		return fmt.Errorf("postgres store: create token table: %w", err)
	}
	return nil
}

// Save upserts a token record.
func (s *PostgresTokenStore) Save(ctx context.Context, name string, record *github.GitHubTokenStorage) (string, error) {
	if record == nil {
		return "", fmt.Errorf("postgres store: record is nil")
	}
	name = recordName(name)

	record.Type = "github"
	record.LastRefresh = time.Now().Format(time.RFC3339)
	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("postgres store: marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()
	`, s.tableName())
	if _, err = s.db.ExecContext(ctx, query, name, json.RawMessage(raw)); err != nil {
		return "", fmt.Errorf("postgres store: upsert token record: %w", err)
	}
	return name, nil
}

// Load reads a token record by name.
func (s *PostgresTokenStore) Load(ctx context.Context, name string) (*github.GitHubTokenStorage, error) {
	query := fmt.Sprintf("SELECT content FROM %s WHERE id = $1", s.tableName())

	var payload string
	err := s.db.QueryRowContext(ctx, query, recordName(name)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: load token record: %w", err)
	}

	var record github.GitHubTokenStorage
	if err = json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("postgres store: parse token record: %w", err)
	}
	return &record, nil
}

// Delete removes a token record.
func (s *PostgresTokenStore) Delete(ctx context.Context, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName())
	if _, err := s.db.ExecContext(ctx, query, recordName(name)); err != nil {
		return fmt.Errorf("postgres store: delete token record: %w", err)
	}
	return nil
}

// UpdateAccessToken rewrites only the token fields of a stored record.
func (s *PostgresTokenStore) UpdateAccessToken(ctx context.Context, name, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`
		UPDATE %s
		SET content = jsonb_set(jsonb_set(content, '{access_token}', to_jsonb($2::text)), '{last_refresh}', to_jsonb($3::text)),
		    updated_at = NOW()
		WHERE id = $1
	`, s.tableName())
	result, err := s.db.ExecContext(ctx, query, recordName(name), accessToken, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("postgres store: update access token: %w", err)
	}
	if affected, errRows := result.RowsAffected(); errRows == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTokenStore) tableName() string {
	if strings.TrimSpace(s.cfg.Schema) == "" {
		return quoteIdentifier(s.cfg.Table)
	}
	return quoteIdentifier(s.cfg.Schema) + "." + quoteIdentifier(s.cfg.Table)
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}

func recordName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultTokenFile
	}
	return name
}
