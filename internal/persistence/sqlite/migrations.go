package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; each entry runs at most once, tracked in
// the schema_migrations table.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		display_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'technician',
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		series_id TEXT NOT NULL,
		owner_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		location TEXT,
		description TEXT,
		meeting_link TEXT,
		recurrence_rule TEXT,
		original_start TEXT,
		order_id TEXT,
		customer_id TEXT,
		case_id TEXT,
		repair_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_series ON appointments(series_id)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_window ON appointments(start_time, end_time)`,
	`CREATE TABLE IF NOT EXISTS repairs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		issue_category TEXT NOT NULL DEFAULT '',
		sla_deadline TEXT,
		customer_id TEXT,
		order_id TEXT,
		case_id TEXT,
		assignee_id TEXT,
		photo_urls TEXT NOT NULL DEFAULT '[]',
		attachment_urls TEXT NOT NULL DEFAULT '[]',
		parts TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id TEXT PRIMARY KEY,
		supplier_ref TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_order_items (
		id TEXT PRIMARY KEY,
		purchase_order_id TEXT NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		customer_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS case_links (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		entity_kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (case_id, entity_kind, entity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		due_at TEXT,
		customer_id TEXT,
		order_id TEXT,
		case_id TEXT,
		repair_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		entity_kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_entity ON notes(entity_kind, entity_id)`,
	`CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		entity_kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		path TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_entity ON files(entity_kind, entity_id)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		entity_kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
}

// Migrate applies pending schema migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("sqlite: create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("sqlite: read migration version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		stmt := migrations[i]
		if err := s.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", version); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", version, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
