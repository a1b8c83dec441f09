package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/repairops/internal/persistence"
)

const caseColumns = "id, title, status, priority, customer_id, created_at, updated_at"

// CreateCase stores a new support case.
func (s *Store) CreateCase(ctx context.Context, c persistence.Case) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cases ("+caseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Title, c.Status, c.Priority, nullString(c.CustomerID),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	return mapError(err)
}

// GetCase retrieves a support case by ID.
func (s *Store) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+caseColumns+" FROM cases WHERE id = ?", id)
	return scanCase(row)
}

// UpdateCase overwrites an existing case.
func (s *Store) UpdateCase(ctx context.Context, c persistence.Case) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE cases SET title = ?, status = ?, priority = ?, customer_id = ?, updated_at = ? WHERE id = ?",
		c.Title, c.Status, c.Priority, nullString(c.CustomerID), formatTime(c.UpdatedAt), c.ID,
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

// DeleteCase removes a case; links cascade.
func (s *Store) DeleteCase(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id)
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

// ListCases returns every case, newest first.
func (s *Store) ListCases(ctx context.Context) ([]persistence.Case, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+caseColumns+" FROM cases ORDER BY created_at DESC, id")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var cases []persistence.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// AddLink attaches a case to another entity. Duplicate links are rejected by
// the unique constraint.
func (s *Store) AddLink(ctx context.Context, link persistence.CaseLink) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO case_links (id, case_id, entity_kind, entity_id, created_at) VALUES (?, ?, ?, ?, ?)",
		link.ID, link.CaseID, link.EntityKind, link.EntityID, formatTime(link.CreatedAt),
	)
	return mapError(err)
}

// ListLinks returns the links of a case in creation order.
func (s *Store) ListLinks(ctx context.Context, caseID string) ([]persistence.CaseLink, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, case_id, entity_kind, entity_id, created_at FROM case_links WHERE case_id = ? ORDER BY created_at, id",
		caseID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var links []persistence.CaseLink
	for rows.Next() {
		var link persistence.CaseLink
		var createdAt string
		if err := rows.Scan(&link.ID, &link.CaseID, &link.EntityKind, &link.EntityID, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if link.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func scanCase(row rowScanner) (persistence.Case, error) {
	var c persistence.Case
	var createdAt, updatedAt string
	var customerID sql.NullString
	err := row.Scan(&c.ID, &c.Title, &c.Status, &c.Priority, &customerID, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Case{}, mapError(err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Case{}, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Case{}, err
	}
	c.CustomerID = stringPtr(customerID)
	return c, nil
}
