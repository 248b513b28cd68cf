// Package postgres implements the document store over a postgres
// collections/documents pair of tables.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chronicle/internal/state"
	"chronicle/internal/store"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	client := &Client{pool: pool}
	if err := client.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}

func (c *Client) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS collections (
    id TEXT PRIMARY KEY,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS documents (
    collection_id TEXT NOT NULL REFERENCES collections(id),
    key TEXT NOT NULL,
    doc JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection_id, key)
)`,
	}
	for _, stmt := range statements {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

func (c *Client) FetchAll(ctx context.Context, collectionID string) (map[string]state.Document, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT key, doc FROM documents WHERE collection_id = $1`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("fetching collection %s: %w", collectionID, err)
	}
	defer rows.Close()

	docs := make(map[string]state.Document)
	for rows.Next() {
		var key string
		var doc state.Document
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs[key] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetching collection %s: %w", collectionID, err)
	}
	return docs, nil
}

func (c *Client) Patch(ctx context.Context, collectionID string, docs map[string]state.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning patch: %w", err)
	}
	defer tx.Rollback(ctx)

	for key, doc := range docs {
		_, err := tx.Exec(ctx, `
INSERT INTO documents (collection_id, key, doc, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (collection_id, key) DO UPDATE SET
    doc = EXCLUDED.doc,
    updated_at = now()
`, collectionID, key, doc)
		if err != nil {
			return fmt.Errorf("upserting document %s: %w", key, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing patch: %w", err)
	}
	return nil
}

func (c *Client) Create(ctx context.Context, description string, initial map[string]state.Document) (string, error) {
	id := uuid.NewString()
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO collections (id, description) VALUES ($1, $2)`, id, description); err != nil {
			return fmt.Errorf("inserting collection: %w", err)
		}
		for key, doc := range initial {
			if _, err := tx.Exec(ctx,
				`INSERT INTO documents (collection_id, key, doc) VALUES ($1, $2, $3)`, id, key, doc); err != nil {
				return fmt.Errorf("inserting document %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	return id, nil
}
