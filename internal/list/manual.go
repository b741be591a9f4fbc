package list

import (
	"context"
	"fmt"

	"github.com/karlvoss/aisle/internal/catalog"
)

// ItemUpdate carries the optional fields of a manual item edit. Nil fields
// are left untouched.
type ItemUpdate struct {
	Quantity *int    `json:"quantity,omitempty"`
	Unit     *string `json:"unit,omitempty"`
	Checked  *bool   `json:"checked,omitempty"`
}

// AddItem adds an item by display name on behalf of the UI. Unlike the voice
// path it accepts names outside the catalog; the catalog is still consulted
// for the category and default unit when the name resolves.
//
// Adding a name whose key is already on the list merges into the existing
// entry, same as the voice path.
func (e *Executor) AddItem(ctx context.Context, listID, name string, quantity int, unit string, via AddedVia) (Item, error) {
	if name == "" {
		return Item{}, fmt.Errorf("list: %w: empty item name", ErrInvalidInput)
	}
	if quantity < 0 {
		return Item{}, fmt.Errorf("list: %w: quantity must be positive", ErrInvalidInput)
	}
	if quantity == 0 {
		quantity = 1
	}
	if via == "" {
		via = ViaManual
	}

	key := catalog.NormalizeKey(name)
	displayName := name
	category := "other"
	if entry := e.index.Get(key); entry != nil {
		displayName = entry.Name
		category = entry.Category
		if unit == "" && len(entry.CommonUnits) > 0 {
			unit = entry.CommonUnits[0]
		}
	}

	var added Item
	err := e.withList(ctx, listID, func(l *List) error {
		if existing := l.FindByKey(key); existing != nil {
			existing.Quantity += quantity
			if existing.Unit == "" {
				existing.Unit = unit
			}
			added = *existing
			return nil
		}
		id, err := generateID()
		if err != nil {
			return fmt.Errorf("list: generate id: %w", err)
		}
		item := Item{
			ID:          id,
			NameKey:     key,
			DisplayName: displayName,
			Quantity:    quantity,
			Unit:        unit,
			Category:    category,
			AddedVia:    via,
		}
		l.Items = append(l.Items, item)
		added = item
		return nil
	})
	return added, err
}

// UpdateItem applies a partial edit to an item by id.
// A quantity below 1 is rejected: the stepper reaching zero must go through
// [Executor.DecrementItem], which removes the entry instead.
func (e *Executor) UpdateItem(ctx context.Context, listID, itemID string, upd ItemUpdate) (Item, error) {
	if upd.Quantity != nil && *upd.Quantity < 1 {
		return Item{}, fmt.Errorf("list: %w: quantity must be at least 1", ErrInvalidInput)
	}

	var updated Item
	err := e.withList(ctx, listID, func(l *List) error {
		item := l.FindByID(itemID)
		if item == nil {
			return ErrItemNotFound
		}
		if upd.Quantity != nil {
			item.Quantity = *upd.Quantity
		}
		if upd.Unit != nil {
			item.Unit = *upd.Unit
		}
		if upd.Checked != nil {
			item.Checked = *upd.Checked
		}
		updated = *item
		return nil
	})
	return updated, err
}

// RemoveItem deletes an item by id. This is the UI's delete button; the voice
// path resolves names through [Executor.Execute] instead.
func (e *Executor) RemoveItem(ctx context.Context, listID, itemID string) error {
	return e.withList(ctx, listID, func(l *List) error {
		if !l.RemoveByID(itemID) {
			return ErrItemNotFound
		}
		return nil
	})
}

// DecrementItem lowers an item's quantity by one; reaching zero removes the
// entry. This is the UI stepper's minus button, deliberately separate from
// voice removal, which always deletes the whole entry.
// The returned item has Quantity 0 when the entry was removed.
func (e *Executor) DecrementItem(ctx context.Context, listID, itemID string) (Item, error) {
	var result Item
	err := e.withList(ctx, listID, func(l *List) error {
		item := l.FindByID(itemID)
		if item == nil {
			return ErrItemNotFound
		}
		if item.Quantity <= 1 {
			result = *item
			result.Quantity = 0
			l.RemoveByID(itemID)
			return nil
		}
		item.Quantity--
		result = *item
		return nil
	})
	return result, err
}

// withList runs fn on a private copy of the list under the list's lock and
// persists it when fn succeeds. The error-returning sibling of mutate for
// operations addressed by item id rather than by parsed command.
func (e *Executor) withList(ctx context.Context, listID string, fn func(*List) error) error {
	lock := e.listLock(listID)
	lock.Lock()
	defer lock.Unlock()

	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return fmt.Errorf("list: load %q: %w", listID, err)
	}
	if err := fn(&l); err != nil {
		return err
	}
	if err := e.store.SaveList(ctx, l); err != nil {
		return fmt.Errorf("list: save %q: %w", listID, err)
	}
	return nil
}
