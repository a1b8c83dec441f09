package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/repairops/internal/persistence"
)

const todoColumns = "id, title, status, priority, due_at, customer_id, order_id, case_id, repair_id, created_at, updated_at"

// CreateTodo stores a new todo.
func (s *Store) CreateTodo(ctx context.Context, todo persistence.Todo) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO todos ("+todoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		todo.ID, todo.Title, todo.Status, todo.Priority, nullTime(todo.DueAt),
		nullString(todo.CustomerID), nullString(todo.OrderID), nullString(todo.CaseID), nullString(todo.RepairID),
		formatTime(todo.CreatedAt), formatTime(todo.UpdatedAt),
	)
	return mapError(err)
}

// GetTodo retrieves a todo by ID.
func (s *Store) GetTodo(ctx context.Context, id string) (persistence.Todo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+todoColumns+" FROM todos WHERE id = ?", id)
	return scanTodo(row)
}

// UpdateTodo overwrites an existing todo.
func (s *Store) UpdateTodo(ctx context.Context, todo persistence.Todo) error {
	result, err := s.db.ExecContext(ctx, `UPDATE todos SET
			title = ?, status = ?, priority = ?, due_at = ?,
			customer_id = ?, order_id = ?, case_id = ?, repair_id = ?, updated_at = ?
		WHERE id = ?`,
		todo.Title, todo.Status, todo.Priority, nullTime(todo.DueAt),
		nullString(todo.CustomerID), nullString(todo.OrderID), nullString(todo.CaseID), nullString(todo.RepairID),
		formatTime(todo.UpdatedAt), todo.ID,
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

// DeleteTodo removes a todo.
func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
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

// ListTodos returns every todo, newest first.
func (s *Store) ListTodos(ctx context.Context) ([]persistence.Todo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+todoColumns+" FROM todos ORDER BY created_at DESC, id")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var todos []persistence.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

func scanTodo(row rowScanner) (persistence.Todo, error) {
	var todo persistence.Todo
	var createdAt, updatedAt string
	var dueAt, customerID, orderID, caseID, repairID sql.NullString
	err := row.Scan(&todo.ID, &todo.Title, &todo.Status, &todo.Priority, &dueAt,
		&customerID, &orderID, &caseID, &repairID, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Todo{}, mapError(err)
	}
	if todo.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Todo{}, err
	}
	if todo.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Todo{}, err
	}
	if todo.DueAt, err = timePtr(dueAt); err != nil {
		return persistence.Todo{}, err
	}
	todo.CustomerID = stringPtr(customerID)
	todo.OrderID = stringPtr(orderID)
	todo.CaseID = stringPtr(caseID)
	todo.RepairID = stringPtr(repairID)
	return todo, nil
}
