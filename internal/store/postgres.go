package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a Postgres documents table.
//
// Each row holds one document: its path, its collection (denormalized from
// the path for indexed listing), and its fields as JSONB. QueryWhere uses
// JSONB containment so the GIN index on fields applies.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger,
	}
}

var _ Store = (*PostgresStore)(nil)

// Get returns the document at path, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, path string) (*Document, error) {
	if _, _, err := SplitPath(path); err != nil {
		return nil, err
	}

	doc := Document{Path: path}
	err := s.pool.QueryRow(ctx,
		`SELECT fields, updated_at FROM documents WHERE path = $1`,
		path,
	).Scan(&doc.Fields, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get %s: %w", path, err)
	}

	return &doc, nil
}

// Query returns every document in the collection, ordered by path.
func (s *PostgresStore) Query(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT path, fields, updated_at FROM documents WHERE collection = $1 ORDER BY path`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", collection, err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// QueryWhere returns the collection's documents whose field equals value.
func (s *PostgresStore) QueryWhere(ctx context.Context, collection, field string, value any) ([]Document, error) {
	match, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, fmt.Errorf("store: query %s where %s: %w", collection, field, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT path, fields, updated_at FROM documents WHERE collection = $1 AND fields @> $2 ORDER BY path`,
		collection, match,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query %s where %s: %w", collection, field, err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Put creates or replaces the document at path.
func (s *PostgresStore) Put(ctx context.Context, path string, fields map[string]any) error {
	collection, _, err := SplitPath(path)
	if err != nil {
		return err
	}

	if fields == nil {
		fields = map[string]any{}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (path, collection, fields)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (path)
		 DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`,
		path, collection, fields,
	)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", path, err)
	}

	return nil
}

// Delete removes the document at path. Idempotent.
func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("store: delete %s: %w", path, err)
	}

	return nil
}

func scanDocuments(rows pgx.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Path, &doc.Fields, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate documents: %w", err)
	}
	return docs, nil
}
