// Package pgvector provides an embedding-backed substitute source.
//
// Instead of a precomputed pairwise similarity artifact it stores one
// embedding per catalog item in a PostgreSQL item_embeddings table and ranks
// substitutes by cosine distance at query time. Drop-in alternative to the
// artifact-backed source for deployments with a database.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/karlvoss/aisle/internal/recommend"
)

var _ recommend.Source = (*SubstituteSource)(nil)

// SubstituteSource ranks substitutes by embedding distance.
// All methods are safe for concurrent use.
type SubstituteSource struct {
	pool  *pgxpool.Pool
	floor float64
	limit int
}

// New connects to the database at dsn, registers pgvector types on every
// connection, and ensures the item_embeddings table exists with the given
// vector dimension. Changing the dimension after the first migration
// requires a manual schema change.
func New(ctx context.Context, dsn string, dimensions int, floor float64, limit int) (*SubstituteSource, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("substitute source: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("substitute source: create pool: %w", err)
	}
	if err := migrate(ctx, pool, dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	if floor <= 0 || floor > 1 {
		floor = 0.70
	}
	if limit <= 0 {
		limit = 4
	}
	return &SubstituteSource{pool: pool, floor: floor, limit: limit}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS item_embeddings (
    name_key   TEXT  PRIMARY KEY,
    item_name  TEXT  NOT NULL,
    category   TEXT  NOT NULL DEFAULT '',
    embedding  vector(%d) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_item_embeddings_embedding
    ON item_embeddings USING hnsw (embedding vector_cosine_ops);
`, dimensions)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("substitute source: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SubstituteSource) Close() { s.pool.Close() }

// Name implements [recommend.Source].
func (s *SubstituteSource) Name() string { return "substitutes" }

// IndexItem upserts an item embedding. The embedding dimension must match
// the one the table was created with.
func (s *SubstituteSource) IndexItem(ctx context.Context, nameKey, itemName, category string, embedding []float32) error {
	const q = `
		INSERT INTO item_embeddings (name_key, item_name, category, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name_key) DO UPDATE SET
		    item_name = EXCLUDED.item_name,
		    category  = EXCLUDED.category,
		    embedding = EXCLUDED.embedding`

	if _, err := s.pool.Exec(ctx, q, nameKey, itemName, category, pgvec.NewVector(embedding)); err != nil {
		return fmt.Errorf("substitute source: index %q: %w", nameKey, err)
	}
	return nil
}

// Rank implements [recommend.Source]. Cosine distance is converted to a
// similarity score (1 - distance) so results compare against the same floor
// as the artifact-backed source. Without an anchor, or with an anchor that
// has no embedding, it returns nothing.
func (s *SubstituteSource) Rank(ctx context.Context, q recommend.Query) ([]recommend.Suggestion, error) {
	if !q.HasAnchor() {
		return nil, nil
	}

	var anchorVec pgvec.Vector
	const anchorQ = `SELECT embedding FROM item_embeddings WHERE name_key = $1`
	if err := s.pool.QueryRow(ctx, anchorQ, q.AnchorKey).Scan(&anchorVec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("substitute source: load anchor %q: %w", q.AnchorKey, err)
	}

	const searchQ = `
		SELECT name_key, item_name, category,
		       embedding <=> $1 AS distance
		FROM   item_embeddings
		WHERE  name_key <> $2
		ORDER  BY distance
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, searchQ, anchorVec, q.AnchorKey, s.limit)
	if err != nil {
		return nil, fmt.Errorf("substitute source: search: %w", err)
	}

	anchor := q.Anchor
	if anchor == "" {
		anchor = q.AnchorKey
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (recommend.Suggestion, error) {
		var (
			sug      recommend.Suggestion
			distance float64
		)
		if err := row.Scan(&sug.NameKey, &sug.ItemName, &sug.Category, &distance); err != nil {
			return recommend.Suggestion{}, err
		}
		sug.Score = 1 - distance
		sug.Reason = fmt.Sprintf("Alternative to %s", anchor)
		sug.Source = s.Name()
		return sug, nil
	})
	if err != nil {
		return nil, fmt.Errorf("substitute source: scan rows: %w", err)
	}

	out := results[:0]
	for _, r := range results {
		if r.Score >= s.floor {
			out = append(out, r)
		}
	}
	return out, nil
}
