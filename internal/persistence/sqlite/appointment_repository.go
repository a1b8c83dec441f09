package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/repairops/internal/persistence"
)

const appointmentColumns = `id, series_id, owner_id, title, type, start_time, end_time,
	location, description, meeting_link, recurrence_rule, original_start,
	order_id, customer_id, case_id, repair_id, created_at, updated_at`

// CreateAppointments inserts a batch of occurrences in one transaction, so a
// recurring series is persisted atomically.
func (s *Store) CreateAppointments(ctx context.Context, appointments []persistence.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO appointments (` + appointmentColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return mapError(err)
		}
		defer stmt.Close()

		for _, apt := range appointments {
			if _, err := stmt.Exec(
				apt.ID, apt.SeriesID, apt.OwnerID, apt.Title, apt.Type,
				formatTime(apt.Start), formatTime(apt.End),
				nullString(apt.Location), nullString(apt.Description), nullString(apt.MeetingLink),
				nullString(apt.RecurrenceRule), nullTime(apt.OriginalStart),
				nullString(apt.OrderID), nullString(apt.CustomerID), nullString(apt.CaseID), nullString(apt.RepairID),
				formatTime(apt.CreatedAt), formatTime(apt.UpdatedAt),
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetAppointment retrieves a single occurrence.
func (s *Store) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+appointmentColumns+" FROM appointments WHERE id = ?", id)
	return scanAppointment(row)
}

// UpdateAppointment overwrites a single occurrence.
func (s *Store) UpdateAppointment(ctx context.Context, apt persistence.Appointment) error {
	result, err := s.db.ExecContext(ctx, `UPDATE appointments SET
			title = ?, type = ?, start_time = ?, end_time = ?,
			location = ?, description = ?, meeting_link = ?,
			recurrence_rule = ?, original_start = ?,
			order_id = ?, customer_id = ?, case_id = ?, repair_id = ?,
			updated_at = ?
		WHERE id = ?`,
		apt.Title, apt.Type, formatTime(apt.Start), formatTime(apt.End),
		nullString(apt.Location), nullString(apt.Description), nullString(apt.MeetingLink),
		nullString(apt.RecurrenceRule), nullTime(apt.OriginalStart),
		nullString(apt.OrderID), nullString(apt.CustomerID), nullString(apt.CaseID), nullString(apt.RepairID),
		formatTime(apt.UpdatedAt),
		apt.ID,
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

// UpdateSeries applies a transformation to every occurrence in a series and
// returns the updated rows.
func (s *Store) UpdateSeries(ctx context.Context, seriesID string, apply func(persistence.Appointment) persistence.Appointment) ([]persistence.Appointment, error) {
	var updated []persistence.Appointment
	err := s.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT "+appointmentColumns+" FROM appointments WHERE series_id = ? ORDER BY start_time", seriesID)
		if err != nil {
			return mapError(err)
		}
		occurrences, err := collectAppointments(rows)
		if err != nil {
			return err
		}
		if len(occurrences) == 0 {
			return persistence.ErrNotFound
		}

		for _, occ := range occurrences {
			next := apply(occ)
			if _, err := tx.Exec(`UPDATE appointments SET
					title = ?, type = ?, start_time = ?, end_time = ?,
					location = ?, description = ?, meeting_link = ?,
					recurrence_rule = ?, original_start = ?,
					order_id = ?, customer_id = ?, case_id = ?, repair_id = ?,
					updated_at = ?
				WHERE id = ?`,
				next.Title, next.Type, formatTime(next.Start), formatTime(next.End),
				nullString(next.Location), nullString(next.Description), nullString(next.MeetingLink),
				nullString(next.RecurrenceRule), nullTime(next.OriginalStart),
				nullString(next.OrderID), nullString(next.CustomerID), nullString(next.CaseID), nullString(next.RepairID),
				formatTime(next.UpdatedAt),
				next.ID,
			); err != nil {
				return mapError(err)
			}
			updated = append(updated, next)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAppointment removes a single occurrence.
func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM appointments WHERE id = ?", id)
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

// DeleteSeries removes every occurrence sharing a series id.
func (s *Store) DeleteSeries(ctx context.Context, seriesID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM appointments WHERE series_id = ?", seriesID)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, persistence.ErrNotFound
	}
	return affected, nil
}

// ListAppointments returns occurrences intersecting the filter window,
// ordered by start time. The window test keeps any occurrence that overlaps
// [TimeMin, TimeMax), not just those fully contained.
func (s *Store) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	query := "SELECT " + appointmentColumns + " FROM appointments WHERE 1=1"
	args := make([]any, 0, 3)

	if filter.TimeMin != nil {
		query += " AND end_time > ?"
		args = append(args, formatTime(*filter.TimeMin))
	}
	if filter.TimeMax != nil {
		query += " AND start_time < ?"
		args = append(args, formatTime(*filter.TimeMax))
	}
	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	query += " ORDER BY start_time, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return collectAppointments(rows)
}

func collectAppointments(rows *sql.Rows) ([]persistence.Appointment, error) {
	defer rows.Close()
	var appointments []persistence.Appointment
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, apt)
	}
	return appointments, rows.Err()
}

func scanAppointment(row rowScanner) (persistence.Appointment, error) {
	var apt persistence.Appointment
	var start, end, createdAt, updatedAt string
	var location, description, meetingLink, rule, originalStart sql.NullString
	var orderID, customerID, caseID, repairID sql.NullString

	err := row.Scan(
		&apt.ID, &apt.SeriesID, &apt.OwnerID, &apt.Title, &apt.Type, &start, &end,
		&location, &description, &meetingLink, &rule, &originalStart,
		&orderID, &customerID, &caseID, &repairID, &createdAt, &updatedAt,
	)
	if err != nil {
		return persistence.Appointment{}, mapError(err)
	}

	if apt.Start, err = parseTime(start); err != nil {
		return persistence.Appointment{}, err
	}
	if apt.End, err = parseTime(end); err != nil {
		return persistence.Appointment{}, err
	}
	if apt.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Appointment{}, err
	}
	if apt.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Appointment{}, err
	}
	if apt.OriginalStart, err = timePtr(originalStart); err != nil {
		return persistence.Appointment{}, err
	}

	apt.Location = stringPtr(location)
	apt.Description = stringPtr(description)
	apt.MeetingLink = stringPtr(meetingLink)
	apt.RecurrenceRule = stringPtr(rule)
	apt.OrderID = stringPtr(orderID)
	apt.CustomerID = stringPtr(customerID)
	apt.CaseID = stringPtr(caseID)
	apt.RepairID = stringPtr(repairID)
	return apt, nil
}
