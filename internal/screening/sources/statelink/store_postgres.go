package statelink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore reads state links from the state_links table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Resolve(ctx context.Context, state string) (string, bool, error) {
	var url string
	err := s.db.QueryRowContext(ctx, `SELECT url FROM state_links WHERE state = $1`, normalize(state)).Scan(&url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve state link: %w", err)
	}
	return url, true, nil
}

// Import upserts every link of t and returns how many rows were written.
func (s *PostgresStore) Import(ctx context.Context, t *Table) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin state link import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n := 0
	for state, url := range t.links {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO state_links (state, url) VALUES ($1, $2)
			ON CONFLICT (state) DO UPDATE SET url = EXCLUDED.url`, state, url); err != nil {
			return 0, fmt.Errorf("import state link %s: %w", state, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit state link import: %w", err)
	}
	return n, nil
}
