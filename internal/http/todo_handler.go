package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/repairops/internal/application"
)

// TodoHandler serves the todo endpoints.
type TodoHandler struct {
	todos     *application.TodoService
	publisher Publisher
	responder responder
	logger    *slog.Logger
}

// NewTodoHandler constructs a TodoHandler.
func NewTodoHandler(todos *application.TodoService, publisher Publisher, logger *slog.Logger) *TodoHandler {
	logger = defaultLogger(logger)
	return &TodoHandler{
		todos:     todos,
		publisher: publisher,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type todoRequest struct {
	Title      string  `json:"title"`
	Priority   string  `json:"priority"`
	DueAt      *string `json:"dueAt"`
	CustomerID *string `json:"customerId"`
	OrderID    *string `json:"orderId"`
	CaseID     *string `json:"caseId"`
	RepairID   *string `json:"repairId"`
}

// Create stores a new todo.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req todoRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	dueAt, err := parseOptionalTime(req.DueAt, nil)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	todo, err := h.todos.Create(ctx, principal, application.TodoInput{
		Title:      req.Title,
		Priority:   req.Priority,
		DueAt:      dueAt,
		CustomerID: req.CustomerID,
		OrderID:    req.OrderID,
		CaseID:     req.CaseID,
		RepairID:   req.RepairID,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("todo", todo.ID, "created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newTodoView(todo))
}

// List returns all todos.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	todos, err := h.todos.List(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]todoView, 0, len(todos))
	for _, todo := range todos {
		views = append(views, newTodoView(todo))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

// Get returns a todo by id.
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	todo, err := h.todos.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, newTodoView(todo))
}

type todoPatchRequest struct {
	Title    *string `json:"title"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
	DueAt    *string `json:"dueAt"`
}

// Update patches a todo.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req todoPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	dueAt, err := parseOptionalTime(req.DueAt, nil)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	todo, err := h.todos.Update(ctx, principal, mux.Vars(r)["id"], application.TodoPatch{
		Title:    req.Title,
		Status:   req.Status,
		Priority: req.Priority,
		DueAt:    dueAt,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("todo", todo.ID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, newTodoView(todo))
}

// Delete removes a todo.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.todos.Delete(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("todo", id, "deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}
