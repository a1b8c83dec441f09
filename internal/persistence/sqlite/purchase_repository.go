package sqlite

import (
	"context"

	"github.com/example/repairops/internal/persistence"
)

const purchaseOrderColumns = "id, supplier_ref, status, created_at, updated_at"

// CreatePurchaseOrder stores a new purchase order.
func (s *Store) CreatePurchaseOrder(ctx context.Context, po persistence.PurchaseOrder) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO purchase_orders ("+purchaseOrderColumns+") VALUES (?, ?, ?, ?, ?)",
		po.ID, po.SupplierRef, po.Status, formatTime(po.CreatedAt), formatTime(po.UpdatedAt),
	)
	return mapError(err)
}

// GetPurchaseOrder retrieves a purchase order by ID.
func (s *Store) GetPurchaseOrder(ctx context.Context, id string) (persistence.PurchaseOrder, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+purchaseOrderColumns+" FROM purchase_orders WHERE id = ?", id)
	var po persistence.PurchaseOrder
	var createdAt, updatedAt string
	err := row.Scan(&po.ID, &po.SupplierRef, &po.Status, &createdAt, &updatedAt)
	if err != nil {
		return persistence.PurchaseOrder{}, mapError(err)
	}
	if po.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.PurchaseOrder{}, err
	}
	if po.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.PurchaseOrder{}, err
	}
	return po, nil
}

// UpdatePurchaseOrder overwrites an existing purchase order.
func (s *Store) UpdatePurchaseOrder(ctx context.Context, po persistence.PurchaseOrder) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE purchase_orders SET supplier_ref = ?, status = ?, updated_at = ? WHERE id = ?",
		po.SupplierRef, po.Status, formatTime(po.UpdatedAt), po.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeletePurchaseOrder removes a purchase order; line items cascade.
func (s *Store) DeletePurchaseOrder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM purchase_orders WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListPurchaseOrders returns every purchase order, newest first.
func (s *Store) ListPurchaseOrders(ctx context.Context) ([]persistence.PurchaseOrder, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+purchaseOrderColumns+" FROM purchase_orders ORDER BY created_at DESC, id")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var orders []persistence.PurchaseOrder
	for rows.Next() {
		var po persistence.PurchaseOrder
		var createdAt, updatedAt string
		if err := rows.Scan(&po.ID, &po.SupplierRef, &po.Status, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		if po.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if po.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// CreateItem stores a new purchase order line item.
func (s *Store) CreateItem(ctx context.Context, item persistence.PurchaseOrderItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purchase_order_items (id, purchase_order_id, description, quantity, unit_price_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.PurchaseOrderID, item.Description, item.Quantity, item.UnitPriceCents, formatTime(item.CreatedAt),
	)
	return mapError(err)
}

// ListItems returns the line items of a purchase order in creation order.
func (s *Store) ListItems(ctx context.Context, purchaseOrderID string) ([]persistence.PurchaseOrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, purchase_order_id, description, quantity, unit_price_cents, created_at
		 FROM purchase_order_items WHERE purchase_order_id = ? ORDER BY created_at, id`,
		purchaseOrderID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var items []persistence.PurchaseOrderItem
	for rows.Next() {
		var item persistence.PurchaseOrderItem
		var createdAt string
		if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.Description, &item.Quantity, &item.UnitPriceCents, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteItem removes a single line item.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM purchase_order_items WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
