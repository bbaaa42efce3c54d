package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadrush/internal/game"
)

// PostgresStore keeps saves in the leadrush_saves table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := p.db.QueryRow(ctx, `SELECT value::text FROM leadrush_saves WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Put stores value as json, so a blob that is not valid JSON is rejected by Postgres.
func (p *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO leadrush_saves (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, string(value))
	return err
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM leadrush_saves WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return game.ErrNotFound
	}
	return nil
}
