package list

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested list does not exist.
var ErrNotFound = errors.New("list not found")

// ErrItemNotFound is returned by item-level operations when the item id does
// not exist on the list.
var ErrItemNotFound = errors.New("item not found")

// ErrInvalidInput is returned when an operation's arguments violate a list
// invariant, such as a non-positive quantity or an empty name.
var ErrInvalidInput = errors.New("invalid input")

// Store is the persistence contract for lists and purchase history.
//
// SaveList replaces the whole aggregate in one operation; combined with the
// executor's per-list locking this gives atomic, non-interleaving mutations
// without the store needing its own transaction surface.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// CreateList creates a new empty list with the given display name and a
	// generated id.
	CreateList(ctx context.Context, name string) (List, error)

	// GetList retrieves a list by id. Returns [ErrNotFound] when it does not
	// exist. The returned value is a copy the caller may mutate freely.
	GetList(ctx context.Context, id string) (List, error)

	// SaveList replaces the stored state of the list with the given snapshot.
	// Returns [ErrNotFound] when no list with that id exists.
	SaveList(ctx context.Context, l List) error

	// DeleteList removes a list and its items.
	// Returns [ErrNotFound] when no list with that id exists.
	DeleteList(ctx context.Context, id string) error

	// Lists returns all lists ordered by creation.
	Lists(ctx context.Context) ([]List, error)

	// RecordPurchases appends purchase history rows. Records of one order
	// share their PurchasedAt timestamp.
	RecordPurchases(ctx context.Context, records []PurchaseRecord) error

	// Purchases returns all purchase history rows, newest first.
	Purchases(ctx context.Context) ([]PurchaseRecord, error)
}
