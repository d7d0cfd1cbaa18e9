package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mutige-mungos/mungo-shift/internal/models"
)

const createSeenTable = `
CREATE TABLE IF NOT EXISTS seen_codes (
	code       TEXT PRIMARY KEY,
	first_seen TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the seen set as rows of a seen_codes table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", models.ErrStoreUnavailable, err)
	}
	if _, err := pool.Exec(ctx, createSeenTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to create seen_codes table: %w", models.ErrStoreUnavailable, err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetSeen(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT code FROM seen_codes`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query seen codes: %w", models.ErrStoreUnavailable, err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read seen codes: %w", models.ErrStoreUnavailable, err)
	}

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		seen[code] = struct{}{}
	}
	return seen, nil
}

// SaveSeen inserts codes, ignoring ones already present.
func (s *PostgresStore) SaveSeen(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, code := range codes {
		batch.Queue(`INSERT INTO seen_codes (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`, code)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: failed to save seen codes: %w", models.ErrStoreUnavailable, err)
	}
	return nil
}
