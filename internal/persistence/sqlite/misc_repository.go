package sqlite

import (
	"context"

	"github.com/example/repairops/internal/persistence"
)

// CreateNote stores a note attached to an entity.
func (s *Store) CreateNote(ctx context.Context, note persistence.Note) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, entity_kind, entity_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		note.ID, note.EntityKind, note.EntityID, note.AuthorID, note.Body, formatTime(note.CreatedAt),
	)
	return mapError(err)
}

// ListNotes returns the notes of an entity in creation order.
func (s *Store) ListNotes(ctx context.Context, entityKind, entityID string) ([]persistence.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_kind, entity_id, author_id, body, created_at
		 FROM notes WHERE entity_kind = ? AND entity_id = ? ORDER BY created_at, id`,
		entityKind, entityID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var notes []persistence.Note
	for rows.Next() {
		var note persistence.Note
		var createdAt string
		if err := rows.Scan(&note.ID, &note.EntityKind, &note.EntityID, &note.AuthorID, &note.Body, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if note.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// CreateFile stores upload metadata.
func (s *Store) CreateFile(ctx context.Context, file persistence.File) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, entity_kind, entity_id, filename, content_type, size_bytes, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.EntityKind, file.EntityID, file.Filename, file.ContentType, file.SizeBytes, file.Path, formatTime(file.CreatedAt),
	)
	return mapError(err)
}

// GetFile retrieves upload metadata by ID.
func (s *Store) GetFile(ctx context.Context, id string) (persistence.File, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, entity_kind, entity_id, filename, content_type, size_bytes, path, created_at FROM files WHERE id = ?", id)
	var file persistence.File
	var createdAt string
	err := row.Scan(&file.ID, &file.EntityKind, &file.EntityID, &file.Filename, &file.ContentType, &file.SizeBytes, &file.Path, &createdAt)
	if err != nil {
		return persistence.File{}, mapError(err)
	}
	if file.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.File{}, err
	}
	return file, nil
}

// DeleteFile removes upload metadata.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
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

// ListFiles returns the uploads attached to an entity in creation order.
func (s *Store) ListFiles(ctx context.Context, entityKind, entityID string) ([]persistence.File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_kind, entity_id, filename, content_type, size_bytes, path, created_at
		 FROM files WHERE entity_kind = ? AND entity_id = ? ORDER BY created_at, id`,
		entityKind, entityID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var files []persistence.File
	for rows.Next() {
		var file persistence.File
		var createdAt string
		if err := rows.Scan(&file.ID, &file.EntityKind, &file.EntityID, &file.Filename, &file.ContentType, &file.SizeBytes, &file.Path, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if file.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// AppendActivity records a mutation in the activity log.
func (s *Store) AppendActivity(ctx context.Context, activity persistence.Activity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, actor_id, entity_kind, entity_id, action, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.ActorID, activity.EntityKind, activity.EntityID, activity.Action, activity.Detail, formatTime(activity.CreatedAt),
	)
	return mapError(err)
}

// ListActivities returns the most recent activity entries, newest first.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]persistence.Activity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor_id, entity_kind, entity_id, action, detail, created_at
		 FROM activities ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var activities []persistence.Activity
	for rows.Next() {
		var activity persistence.Activity
		var createdAt string
		if err := rows.Scan(&activity.ID, &activity.ActorID, &activity.EntityKind, &activity.EntityID, &activity.Action, &activity.Detail, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if activity.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}
