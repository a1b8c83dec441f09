package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
)

// purchaseTransitions is the forward-only purchase order lifecycle.
var purchaseTransitions = map[string]string{
	PurchaseStatusAangekocht: PurchaseStatusOntvangen,
	PurchaseStatusOntvangen:  PurchaseStatusVerwerkt,
	PurchaseStatusVerwerkt:   "",
}

func purchaseTransitionAllowed(from, to string) bool {
	return from == to || purchaseTransitions[from] == to
}

// PurchaseOrderService manages supplier purchase orders and their line items.
type PurchaseOrderService struct {
	orders      persistence.PurchaseOrderRepository
	activities  *ActivityService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPurchaseOrderService constructs a PurchaseOrderService.
func NewPurchaseOrderService(
	orders persistence.PurchaseOrderRepository,
	activities *ActivityService,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		orders:      orders,
		activities:  activities,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Create stores a new purchase order in status aangekocht.
func (s *PurchaseOrderService) Create(ctx context.Context, actor Principal, input PurchaseOrderInput) (persistence.PurchaseOrder, error) {
	logger := serviceLogger(ctx, s.logger, "purchase_order", "create", "actorId", actor.UserID)

	vErr := &ValidationError{}
	if strings.TrimSpace(input.SupplierRef) == "" {
		vErr.add("supplierRef", "supplier reference is required")
	}
	if vErr.HasErrors() {
		return persistence.PurchaseOrder{}, vErr
	}

	now := s.now().UTC()
	po := persistence.PurchaseOrder{
		ID:          s.idGenerator(),
		SupplierRef: strings.TrimSpace(input.SupplierRef),
		Status:      PurchaseStatusAangekocht,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.CreatePurchaseOrder(ctx, po); err != nil {
		logger.Error("failed to create purchase order", "error", err)
		return persistence.PurchaseOrder{}, err
	}

	logger.Info("purchase order created", "purchaseOrderId", po.ID)
	s.activities.Record(ctx, actor.UserID, EntityPurchaseOrder, po.ID, "created", po.SupplierRef)
	return po, nil
}

// Get returns a purchase order by id.
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (persistence.PurchaseOrder, error) {
	po, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.PurchaseOrder{}, ErrNotFound
		}
		serviceLogger(ctx, s.logger, "purchase_order", "get").Error("failed to load purchase order", "error", err, "purchaseOrderId", id)
		return persistence.PurchaseOrder{}, err
	}
	return po, nil
}

// List returns all purchase orders, newest first.
func (s *PurchaseOrderService) List(ctx context.Context) ([]persistence.PurchaseOrder, error) {
	orders, err := s.orders.ListPurchaseOrders(ctx)
	if err != nil {
		serviceLogger(ctx, s.logger, "purchase_order", "list").Error("failed to list purchase orders", "error", err)
		return nil, err
	}
	return orders, nil
}

// Update applies a patch. Status may only move forward through
// aangekocht -> ontvangen -> verwerkt.
func (s *PurchaseOrderService) Update(ctx context.Context, actor Principal, id string, patch PurchaseOrderPatch) (persistence.PurchaseOrder, error) {
	logger := serviceLogger(ctx, s.logger, "purchase_order", "update", "actorId", actor.UserID, "purchaseOrderId", id)

	po, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.PurchaseOrder{}, ErrNotFound
		}
		logger.Error("failed to load purchase order", "error", err)
		return persistence.PurchaseOrder{}, err
	}

	vErr := &ValidationError{}
	if patch.SupplierRef != nil && strings.TrimSpace(*patch.SupplierRef) == "" {
		vErr.add("supplierRef", "supplier reference is required")
	}
	if patch.Status != nil {
		if _, known := purchaseTransitions[*patch.Status]; !known {
			vErr.add("status", "unknown status")
		} else if !purchaseTransitionAllowed(po.Status, *patch.Status) {
			vErr.add("status", "status can only move forward")
		}
	}
	if vErr.HasErrors() {
		return persistence.PurchaseOrder{}, vErr
	}

	if patch.SupplierRef != nil {
		po.SupplierRef = strings.TrimSpace(*patch.SupplierRef)
	}
	if patch.Status != nil && *patch.Status != po.Status {
		previous := po.Status
		po.Status = *patch.Status
		s.activities.Record(ctx, actor.UserID, EntityPurchaseOrder, po.ID, "status_changed", previous+" -> "+po.Status)
	}
	po.UpdatedAt = s.now().UTC()

	if err := s.orders.UpdatePurchaseOrder(ctx, po); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.PurchaseOrder{}, ErrNotFound
		}
		logger.Error("failed to update purchase order", "error", err)
		return persistence.PurchaseOrder{}, err
	}

	logger.Info("purchase order updated")
	return po, nil
}

// Delete removes a purchase order and its line items. Admin only.
func (s *PurchaseOrderService) Delete(ctx context.Context, actor Principal, id string) error {
	logger := serviceLogger(ctx, s.logger, "purchase_order", "delete", "actorId", actor.UserID, "purchaseOrderId", id)
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	if err := s.orders.DeletePurchaseOrder(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to delete purchase order", "error", err)
		return err
	}
	logger.Info("purchase order deleted")
	s.activities.Record(ctx, actor.UserID, EntityPurchaseOrder, id, "deleted", "")
	return nil
}

// AddItem appends a line item to a purchase order.
func (s *PurchaseOrderService) AddItem(ctx context.Context, actor Principal, purchaseOrderID string, input PurchaseOrderItemInput) (persistence.PurchaseOrderItem, error) {
	logger := serviceLogger(ctx, s.logger, "purchase_order", "add_item", "actorId", actor.UserID, "purchaseOrderId", purchaseOrderID)

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Description) == "" {
		vErr.add("description", "description is required")
	}
	if input.Quantity <= 0 {
		vErr.add("quantity", "quantity must be positive")
	}
	if input.UnitPriceCents < 0 {
		vErr.add("unitPriceCents", "unit price must not be negative")
	}
	if vErr.HasErrors() {
		return persistence.PurchaseOrderItem{}, vErr
	}

	if _, err := s.orders.GetPurchaseOrder(ctx, purchaseOrderID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.PurchaseOrderItem{}, ErrNotFound
		}
		logger.Error("failed to load purchase order", "error", err)
		return persistence.PurchaseOrderItem{}, err
	}

	item := persistence.PurchaseOrderItem{
		ID:              s.idGenerator(),
		PurchaseOrderID: purchaseOrderID,
		Description:     strings.TrimSpace(input.Description),
		Quantity:        input.Quantity,
		UnitPriceCents:  input.UnitPriceCents,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.orders.CreateItem(ctx, item); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return persistence.PurchaseOrderItem{}, ErrNotFound
		}
		logger.Error("failed to create item", "error", err)
		return persistence.PurchaseOrderItem{}, err
	}

	s.activities.Record(ctx, actor.UserID, EntityPurchaseOrder, purchaseOrderID, "item_added", item.Description)
	return item, nil
}

// ListItems returns the line items of a purchase order.
func (s *PurchaseOrderService) ListItems(ctx context.Context, purchaseOrderID string) ([]persistence.PurchaseOrderItem, error) {
	items, err := s.orders.ListItems(ctx, purchaseOrderID)
	if err != nil {
		serviceLogger(ctx, s.logger, "purchase_order", "list_items").Error("failed to list items", "error", err, "purchaseOrderId", purchaseOrderID)
		return nil, err
	}
	return items, nil
}

// RemoveItem deletes a single line item.
func (s *PurchaseOrderService) RemoveItem(ctx context.Context, actor Principal, purchaseOrderID, itemID string) error {
	logger := serviceLogger(ctx, s.logger, "purchase_order", "remove_item", "actorId", actor.UserID, "purchaseOrderId", purchaseOrderID)
	if err := s.orders.DeleteItem(ctx, itemID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to delete item", "error", err)
		return err
	}
	s.activities.Record(ctx, actor.UserID, EntityPurchaseOrder, purchaseOrderID, "item_removed", itemID)
	return nil
}
