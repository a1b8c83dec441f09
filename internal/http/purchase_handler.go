package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/repairops/internal/application"
)

// PurchaseOrderHandler serves the purchase order endpoints.
type PurchaseOrderHandler struct {
	orders    *application.PurchaseOrderService
	notes     *application.NoteService
	files     *application.FileService
	publisher Publisher
	responder responder
	logger    *slog.Logger
}

// NewPurchaseOrderHandler constructs a PurchaseOrderHandler.
func NewPurchaseOrderHandler(
	orders *application.PurchaseOrderService,
	notes *application.NoteService,
	files *application.FileService,
	publisher Publisher,
	logger *slog.Logger,
) *PurchaseOrderHandler {
	logger = defaultLogger(logger)
	return &PurchaseOrderHandler{
		orders:    orders,
		notes:     notes,
		files:     files,
		publisher: publisher,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type purchaseOrderRequest struct {
	SupplierRef string `json:"supplierRef"`
}

// Create stores a new purchase order.
func (h *PurchaseOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req purchaseOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	po, err := h.orders.Create(ctx, principal, application.PurchaseOrderInput{SupplierRef: req.SupplierRef})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("purchase_order", po.ID, "created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newPurchaseOrderView(po))
}

// List returns all purchase orders.
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.orders.List(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]purchaseOrderView, 0, len(orders))
	for _, po := range orders {
		views = append(views, newPurchaseOrderView(po))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

// Get returns a purchase order by id.
func (h *PurchaseOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	po, err := h.orders.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, newPurchaseOrderView(po))
}

type purchaseOrderPatchRequest struct {
	SupplierRef *string `json:"supplierRef"`
	Status      *string `json:"status"`
}

// Update patches a purchase order; status may only move forward.
func (h *PurchaseOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req purchaseOrderPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	po, err := h.orders.Update(ctx, principal, mux.Vars(r)["id"], application.PurchaseOrderPatch{
		SupplierRef: req.SupplierRef,
		Status:      req.Status,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("purchase_order", po.ID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, newPurchaseOrderView(po))
}

// Delete removes a purchase order. Admin only.
func (h *PurchaseOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.orders.Delete(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("purchase_order", id, "deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

type purchaseOrderItemRequest struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// AddItem appends a line item to a purchase order.
func (h *PurchaseOrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req purchaseOrderItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	id := mux.Vars(r)["id"]
	item, err := h.orders.AddItem(ctx, principal, id, application.PurchaseOrderItemInput{
		Description:    req.Description,
		Quantity:       req.Quantity,
		UnitPriceCents: req.UnitPriceCents,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("purchase_order", id, "updated")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newPurchaseOrderItemView(item))
}

// ListItems returns the line items of a purchase order.
func (h *PurchaseOrderHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.orders.ListItems(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]purchaseOrderItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newPurchaseOrderItemView(item))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

// RemoveItem deletes a line item.
func (h *PurchaseOrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	vars := mux.Vars(r)
	if err := h.orders.RemoveItem(ctx, principal, vars["id"], vars["itemId"]); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("purchase_order", vars["id"], "updated")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// AddNote attaches a note to a purchase order.
func (h *PurchaseOrderHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	note, err := h.notes.Add(ctx, principal, application.EntityPurchaseOrder, mux.Vars(r)["id"], req.Body)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("purchase_order", note.EntityID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newNoteView(note))
}

// ListNotes returns the notes of a purchase order.
func (h *PurchaseOrderHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notes, err := h.notes.List(ctx, application.EntityPurchaseOrder, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]noteView, 0, len(notes))
	for _, note := range notes {
		views = append(views, newNoteView(note))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

// ListFiles returns the uploads attached to a purchase order.
func (h *PurchaseOrderHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	files, err := h.files.List(ctx, application.EntityPurchaseOrder, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]fileView, 0, len(files))
	for _, file := range files {
		views = append(views, newFileView(file))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}
