package list

import (
	"context"
	"fmt"
	"time"
)

// PlaceOrder snapshots the list into purchase history and clears it. Every
// record of the order carries the same PurchasedAt timestamp; that shared
// timestamp is what groups the rows back into one order in [Executor.OrderHistory].
// Ordering an empty list is a no-op.
func (e *Executor) PlaceOrder(ctx context.Context, listID string) (ActionResult, error) {
	lock := e.listLock(listID)
	lock.Lock()
	defer lock.Unlock()

	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list: load %q: %w", listID, err)
	}
	if len(l.Items) == 0 {
		return ActionResult{Status: StatusNoChange, Message: "Your list is empty, nothing to order."}, nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	records := make([]PurchaseRecord, len(l.Items))
	for i, it := range l.Items {
		records[i] = PurchaseRecord{
			ItemName:     it.DisplayName,
			NameKey:      it.NameKey,
			Category:     it.Category,
			Quantity:     it.Quantity,
			Unit:         it.Unit,
			SourceListID: l.ID,
			PurchasedAt:  now,
		}
	}
	if err := e.store.RecordPurchases(ctx, records); err != nil {
		return ActionResult{}, fmt.Errorf("list: record purchases: %w", err)
	}

	count := len(l.Items)
	l.Items = nil
	if err := e.store.SaveList(ctx, l); err != nil {
		return ActionResult{}, fmt.Errorf("list: save %q: %w", listID, err)
	}

	e.logger.Info("order placed", "list_id", listID, "items", count)
	return ActionResult{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Order placed with %d items.", count),
	}, nil
}

// OrderHistory groups purchase history into orders, newest first. Records
// sharing a PurchasedAt timestamp form one order.
func (e *Executor) OrderHistory(ctx context.Context) ([]Order, error) {
	records, err := e.store.Purchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: load purchases: %w", err)
	}

	var orders []Order
	var current *Order
	for _, r := range records {
		if current == nil || !r.PurchasedAt.Equal(current.PurchasedAt) {
			orders = append(orders, Order{
				OrderID:     fmt.Sprintf("order-%d", r.PurchasedAt.UnixMilli()),
				PurchasedAt: r.PurchasedAt,
			})
			current = &orders[len(orders)-1]
		}
		current.Items = append(current.Items, r)
		current.ItemCount++
	}
	return orders, nil
}
