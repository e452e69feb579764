package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the documents table if needed. Keeping the migration
// in code lets docker-compose bootstrap everything.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection_ts ON documents(collection, ts DESC);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresStore implements Store on a pgx pool. Each document is one row in
// the documents table keyed by (collection, id).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, collection, id string, data []byte, ts time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, ts) VALUES ($1,$2,$3,$4)
	`, collection, id, data, ts)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrExists
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, collection, id string, data []byte, ts time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, ts) VALUES ($1,$2,$3,$4)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, data, ts)
	if err != nil {
		return false, fmt.Errorf("insert document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection=$1 AND id=$2
	`, collection, id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return data, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM documents WHERE collection=$1 AND id=$2
	`, collection, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Scan(ctx context.Context, collection string, n int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data, ts FROM documents WHERE collection=$1 ORDER BY ts DESC, id LIMIT $2
	`, collection, clampScan(n))
	if err != nil {
		return nil, fmt.Errorf("scan collection: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Data, &e.TS); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan collection: %w", err)
	}
	return entries, nil
}
