// Package postgres provides a PostgreSQL-backed implementation of
// [list.Store].
//
// Each list is persisted as a row in lists plus its item rows in list_items;
// SaveList replaces the item rows inside a single transaction, matching the
// whole-aggregate contract of the interface. Purchase history is append-only.
package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karlvoss/aisle/internal/list"
)

// newID returns a 16-character random hex string, matching the id shape of
// the in-memory store.
func newID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ list.Store = (*Store)(nil)

const ddl = `
CREATE TABLE IF NOT EXISTS lists (
    id          TEXT         PRIMARY KEY,
    name        TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS list_items (
    id           TEXT     NOT NULL,
    list_id      TEXT     NOT NULL REFERENCES lists (id) ON DELETE CASCADE,
    position     INT      NOT NULL,
    name_key     TEXT     NOT NULL,
    display_name TEXT     NOT NULL,
    quantity     INT      NOT NULL,
    unit         TEXT     NOT NULL DEFAULT '',
    category     TEXT     NOT NULL DEFAULT '',
    checked      BOOLEAN  NOT NULL DEFAULT false,
    added_via    TEXT     NOT NULL DEFAULT 'manual',
    PRIMARY KEY (list_id, id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_list_items_key
    ON list_items (list_id, name_key);

CREATE TABLE IF NOT EXISTS purchase_history (
    id             BIGSERIAL    PRIMARY KEY,
    item_name      TEXT         NOT NULL,
    name_key       TEXT         NOT NULL,
    category       TEXT         NOT NULL DEFAULT '',
    quantity       INT          NOT NULL,
    unit           TEXT         NOT NULL DEFAULT '',
    source_list_id TEXT         NOT NULL,
    purchased_at   TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_purchase_history_purchased_at
    ON purchase_history (purchased_at DESC);

CREATE INDEX IF NOT EXISTS idx_purchase_history_name_key
    ON purchase_history (name_key);
`

// Store is the PostgreSQL-backed [list.Store]. All methods are safe for
// concurrent use; mutation atomicity per list id is still the executor's job.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("list store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("list store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("list store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("list store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the required tables and indexes. Idempotent, safe to call
// on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("list store migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// CreateList implements [list.Store.CreateList].
func (s *Store) CreateList(ctx context.Context, name string) (list.List, error) {
	if name == "" {
		name = "My Shopping List"
	}
	id, err := newID()
	if err != nil {
		return list.List{}, fmt.Errorf("list store: generate id: %w", err)
	}
	const q = `INSERT INTO lists (id, name) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, q, id, name); err != nil {
		return list.List{}, fmt.Errorf("list store: create: %w", err)
	}
	return list.List{ID: id, Name: name}, nil
}

// GetList implements [list.Store.GetList].
func (s *Store) GetList(ctx context.Context, id string) (list.List, error) {
	var l list.List
	const q = `SELECT id, name FROM lists WHERE id = $1`
	if err := s.pool.QueryRow(ctx, q, id).Scan(&l.ID, &l.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return list.List{}, list.ErrNotFound
		}
		return list.List{}, fmt.Errorf("list store: get %q: %w", id, err)
	}

	items, err := s.listItems(ctx, id)
	if err != nil {
		return list.List{}, err
	}
	l.Items = items
	return l, nil
}

func (s *Store) listItems(ctx context.Context, listID string) ([]list.Item, error) {
	const q = `
		SELECT id, name_key, display_name, quantity, unit, category, checked, added_via
		FROM   list_items
		WHERE  list_id = $1
		ORDER  BY position`

	rows, err := s.pool.Query(ctx, q, listID)
	if err != nil {
		return nil, fmt.Errorf("list store: query items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (list.Item, error) {
		var (
			it  list.Item
			via string
		)
		if err := row.Scan(&it.ID, &it.NameKey, &it.DisplayName, &it.Quantity,
			&it.Unit, &it.Category, &it.Checked, &via); err != nil {
			return list.Item{}, err
		}
		it.AddedVia = list.AddedVia(via)
		return it, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list store: scan items: %w", err)
	}
	return items, nil
}

// SaveList implements [list.Store.SaveList]. The item rows are replaced
// wholesale inside one transaction so readers never observe a half-applied
// mutation.
func (s *Store) SaveList(ctx context.Context, l list.List) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("list store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE lists SET name = $2 WHERE id = $1`, l.ID, l.Name)
	if err != nil {
		return fmt.Errorf("list store: save %q: %w", l.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return list.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM list_items WHERE list_id = $1`, l.ID); err != nil {
		return fmt.Errorf("list store: clear items: %w", err)
	}

	const insert = `
		INSERT INTO list_items
		    (id, list_id, position, name_key, display_name, quantity, unit, category, checked, added_via)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for i, it := range l.Items {
		if _, err := tx.Exec(ctx, insert,
			it.ID, l.ID, i, it.NameKey, it.DisplayName,
			it.Quantity, it.Unit, it.Category, it.Checked, string(it.AddedVia),
		); err != nil {
			return fmt.Errorf("list store: insert item %q: %w", it.NameKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("list store: commit: %w", err)
	}
	return nil
}

// DeleteList implements [list.Store.DeleteList]. Item rows go with the list
// via ON DELETE CASCADE.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("list store: delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return list.ErrNotFound
	}
	return nil
}

// Lists implements [list.Store.Lists].
func (s *Store) Lists(ctx context.Context) ([]list.List, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM lists ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list store: query lists: %w", err)
	}
	lists, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (list.List, error) {
		var l list.List
		err := row.Scan(&l.ID, &l.Name)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("list store: scan lists: %w", err)
	}
	for i := range lists {
		items, err := s.listItems(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Items = items
	}
	return lists, nil
}

// RecordPurchases implements [list.Store.RecordPurchases].
func (s *Store) RecordPurchases(ctx context.Context, records []list.PurchaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("list store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO purchase_history
		    (item_name, name_key, category, quantity, unit, source_list_id, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, r := range records {
		if _, err := tx.Exec(ctx, q,
			r.ItemName, r.NameKey, r.Category, r.Quantity, r.Unit, r.SourceListID, r.PurchasedAt,
		); err != nil {
			return fmt.Errorf("list store: insert purchase %q: %w", r.NameKey, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("list store: commit purchases: %w", err)
	}
	return nil
}

// Purchases implements [list.Store.Purchases].
func (s *Store) Purchases(ctx context.Context) ([]list.PurchaseRecord, error) {
	const q = `
		SELECT item_name, name_key, category, quantity, unit, source_list_id, purchased_at
		FROM   purchase_history
		ORDER  BY purchased_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list store: query purchases: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (list.PurchaseRecord, error) {
		var r list.PurchaseRecord
		err := row.Scan(&r.ItemName, &r.NameKey, &r.Category, &r.Quantity,
			&r.Unit, &r.SourceListID, &r.PurchasedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("list store: scan purchases: %w", err)
	}
	return records, nil
}
