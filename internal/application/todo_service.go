package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
)

// TodoService manages todos.
type TodoService struct {
	todos       persistence.TodoRepository
	activities  *ActivityService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTodoService constructs a TodoService.
func NewTodoService(
	todos persistence.TodoRepository,
	activities *ActivityService,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *TodoService {
	return &TodoService{
		todos:       todos,
		activities:  activities,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Create validates and stores a new todo in status open.
func (s *TodoService) Create(ctx context.Context, actor Principal, input TodoInput) (persistence.Todo, error) {
	logger := serviceLogger(ctx, s.logger, "todo", "create", "actorId", actor.UserID)

	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if !validPriority(priority) {
		vErr.add("priority", "priority must be one of low, normal, high, urgent")
	}
	if vErr.HasErrors() {
		return persistence.Todo{}, vErr
	}

	now := s.now().UTC()
	todo := persistence.Todo{
		ID:         s.idGenerator(),
		Title:      strings.TrimSpace(input.Title),
		Status:     TodoStatusOpen,
		Priority:   priority,
		DueAt:      input.DueAt,
		CustomerID: input.CustomerID,
		OrderID:    input.OrderID,
		CaseID:     input.CaseID,
		RepairID:   input.RepairID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.todos.CreateTodo(ctx, todo); err != nil {
		logger.Error("failed to create todo", "error", err)
		return persistence.Todo{}, err
	}

	logger.Info("todo created", "todoId", todo.ID)
	s.activities.Record(ctx, actor.UserID, EntityTodo, todo.ID, "created", todo.Title)
	return todo, nil
}

// Get returns a todo by id.
func (s *TodoService) Get(ctx context.Context, id string) (persistence.Todo, error) {
	todo, err := s.todos.GetTodo(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Todo{}, ErrNotFound
		}
		serviceLogger(ctx, s.logger, "todo", "get").Error("failed to load todo", "error", err, "todoId", id)
		return persistence.Todo{}, err
	}
	return todo, nil
}

// List returns all todos.
func (s *TodoService) List(ctx context.Context) ([]persistence.Todo, error) {
	todos, err := s.todos.ListTodos(ctx)
	if err != nil {
		serviceLogger(ctx, s.logger, "todo", "list").Error("failed to list todos", "error", err)
		return nil, err
	}
	return todos, nil
}

// Update applies a patch to a todo.
func (s *TodoService) Update(ctx context.Context, actor Principal, id string, patch TodoPatch) (persistence.Todo, error) {
	logger := serviceLogger(ctx, s.logger, "todo", "update", "actorId", actor.UserID, "todoId", id)

	todo, err := s.todos.GetTodo(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Todo{}, ErrNotFound
		}
		logger.Error("failed to load todo", "error", err)
		return persistence.Todo{}, err
	}

	vErr := &ValidationError{}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		vErr.add("title", "title is required")
	}
	if patch.Status != nil && *patch.Status != TodoStatusOpen && *patch.Status != TodoStatusDone {
		vErr.add("status", "status must be open or done")
	}
	if patch.Priority != nil && !validPriority(*patch.Priority) {
		vErr.add("priority", "priority must be one of low, normal, high, urgent")
	}
	if vErr.HasErrors() {
		return persistence.Todo{}, vErr
	}

	if patch.Title != nil {
		todo.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Status != nil {
		todo.Status = *patch.Status
	}
	if patch.Priority != nil {
		todo.Priority = *patch.Priority
	}
	if patch.DueAt != nil {
		todo.DueAt = patch.DueAt
	}
	todo.UpdatedAt = s.now().UTC()

	if err := s.todos.UpdateTodo(ctx, todo); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Todo{}, ErrNotFound
		}
		logger.Error("failed to update todo", "error", err)
		return persistence.Todo{}, err
	}

	logger.Info("todo updated")
	s.activities.Record(ctx, actor.UserID, EntityTodo, todo.ID, "updated", todo.Title)
	return todo, nil
}

// Delete removes a todo.
func (s *TodoService) Delete(ctx context.Context, actor Principal, id string) error {
	logger := serviceLogger(ctx, s.logger, "todo", "delete", "actorId", actor.UserID, "todoId", id)
	if err := s.todos.DeleteTodo(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to delete todo", "error", err)
		return err
	}
	logger.Info("todo deleted")
	s.activities.Record(ctx, actor.UserID, EntityTodo, id, "deleted", "")
	return nil
}
