package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/repairops/internal/persistence"
)

const repairColumns = `id, title, status, priority, issue_category, sla_deadline,
	customer_id, order_id, case_id, assignee_id,
	photo_urls, attachment_urls, parts, created_at, updated_at, completed_at`

// CreateRepair stores a new repair ticket.
func (s *Store) CreateRepair(ctx context.Context, repair persistence.Repair) error {
	photos, attachments, parts, err := encodeRepairJSON(repair)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO repairs ("+repairColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		repair.ID, repair.Title, repair.Status, repair.Priority, repair.IssueCategory,
		nullTime(repair.SLADeadline),
		nullString(repair.CustomerID), nullString(repair.OrderID), nullString(repair.CaseID), nullString(repair.AssigneeID),
		photos, attachments, parts,
		formatTime(repair.CreatedAt), formatTime(repair.UpdatedAt), nullTime(repair.CompletedAt),
	)
	return mapError(err)
}

// GetRepair retrieves a repair ticket by ID.
func (s *Store) GetRepair(ctx context.Context, id string) (persistence.Repair, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+repairColumns+" FROM repairs WHERE id = ?", id)
	return scanRepair(row)
}

// UpdateRepair overwrites an existing repair ticket.
func (s *Store) UpdateRepair(ctx context.Context, repair persistence.Repair) error {
	photos, attachments, parts, err := encodeRepairJSON(repair)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `UPDATE repairs SET
			title = ?, status = ?, priority = ?, issue_category = ?, sla_deadline = ?,
			customer_id = ?, order_id = ?, case_id = ?, assignee_id = ?,
			photo_urls = ?, attachment_urls = ?, parts = ?,
			updated_at = ?, completed_at = ?
		WHERE id = ?`,
		repair.Title, repair.Status, repair.Priority, repair.IssueCategory, nullTime(repair.SLADeadline),
		nullString(repair.CustomerID), nullString(repair.OrderID), nullString(repair.CaseID), nullString(repair.AssigneeID),
		photos, attachments, parts,
		formatTime(repair.UpdatedAt), nullTime(repair.CompletedAt),
		repair.ID,
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

// DeleteRepair removes a repair ticket.
func (s *Store) DeleteRepair(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM repairs WHERE id = ?", id)
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

// ListRepairs returns repair tickets matching the filter, newest first.
func (s *Store) ListRepairs(ctx context.Context, filter persistence.RepairFilter) ([]persistence.Repair, error) {
	query := "SELECT " + repairColumns + " FROM repairs WHERE 1=1"
	args := make([]any, 0, 2)
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.AssigneeID != "" {
		query += " AND assignee_id = ?"
		args = append(args, filter.AssigneeID)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var repairs []persistence.Repair
	for rows.Next() {
		repair, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		repairs = append(repairs, repair)
	}
	return repairs, rows.Err()
}

func encodeRepairJSON(repair persistence.Repair) (string, string, string, error) {
	photos, err := encodeStringList(repair.PhotoURLs)
	if err != nil {
		return "", "", "", err
	}
	attachments, err := encodeStringList(repair.AttachmentURLs)
	if err != nil {
		return "", "", "", err
	}
	parts := repair.Parts
	if parts == nil {
		parts = []persistence.RepairPart{}
	}
	encoded, err := json.Marshal(parts)
	if err != nil {
		return "", "", "", fmt.Errorf("sqlite: encode parts: %w", err)
	}
	return photos, attachments, string(encoded), nil
}

func encodeStringList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode list: %w", err)
	}
	return string(encoded), nil
}

func scanRepair(row rowScanner) (persistence.Repair, error) {
	var repair persistence.Repair
	var createdAt, updatedAt, photos, attachments, parts string
	var slaDeadline, completedAt sql.NullString
	var customerID, orderID, caseID, assigneeID sql.NullString

	err := row.Scan(
		&repair.ID, &repair.Title, &repair.Status, &repair.Priority, &repair.IssueCategory, &slaDeadline,
		&customerID, &orderID, &caseID, &assigneeID,
		&photos, &attachments, &parts, &createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return persistence.Repair{}, mapError(err)
	}

	if repair.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Repair{}, err
	}
	if repair.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Repair{}, err
	}
	if repair.SLADeadline, err = timePtr(slaDeadline); err != nil {
		return persistence.Repair{}, err
	}
	if repair.CompletedAt, err = timePtr(completedAt); err != nil {
		return persistence.Repair{}, err
	}

	if err := json.Unmarshal([]byte(photos), &repair.PhotoURLs); err != nil {
		return persistence.Repair{}, fmt.Errorf("sqlite: decode photo urls: %w", err)
	}
	if err := json.Unmarshal([]byte(attachments), &repair.AttachmentURLs); err != nil {
		return persistence.Repair{}, fmt.Errorf("sqlite: decode attachment urls: %w", err)
	}
	if err := json.Unmarshal([]byte(parts), &repair.Parts); err != nil {
		return persistence.Repair{}, fmt.Errorf("sqlite: decode parts: %w", err)
	}

	repair.CustomerID = stringPtr(customerID)
	repair.OrderID = stringPtr(orderID)
	repair.CaseID = stringPtr(caseID)
	repair.AssigneeID = stringPtr(assigneeID)
	return repair, nil
}
