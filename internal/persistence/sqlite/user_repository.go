package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
)

const userColumns = "id, email, display_name, role, password_hash, created_at, updated_at"

// CreateUser stores a new user account.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.DisplayName,
		user.Role,
		user.PasswordHash,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return mapError(err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? COLLATE NOCASE",
		strings.TrimSpace(email),
	)
	return scanUser(row)
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var createdAt, updatedAt string
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role, &user.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

const sessionColumns = "id, user_id, token, expires_at, created_at, updated_at, revoked_at"

// CreateSession stores a new session and returns the persisted row.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		session.ID,
		session.UserID,
		session.Token,
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
		nullTime(session.RevokedAt),
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return s.GetSession(ctx, session.Token)
}

// GetSession retrieves a session by its token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE token = ?", token)
	return scanSession(row)
}

// RevokeSession marks a session revoked and returns the updated row.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE token = ? AND revoked_at IS NULL",
		formatTime(revokedAt),
		formatTime(revokedAt),
		token,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, err
	}
	if affected == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return s.GetSession(ctx, token)
}

// DeleteExpiredSessions removes sessions that expired before the reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", formatTime(reference))
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var expiresAt, createdAt, updatedAt string
	var revokedAt sql.NullString
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &expiresAt, &createdAt, &updatedAt, &revokedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.RevokedAt, err = timePtr(revokedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}
