package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/repairops/internal/persistence"
)

// AuthService authenticates users and manages their sessions. Logins produce
// both an opaque session token (set as a cookie) and a signed JWT for API
// clients that prefer bearer authentication.
type AuthService struct {
	users       persistence.UserRepository
	sessions    persistence.SessionRepository
	jwtSecret   []byte
	sessionTTL  time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	users persistence.UserRepository,
	sessions persistence.SessionRepository,
	jwtSecret []byte,
	sessionTTL time.Duration,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		jwtSecret:   jwtSecret,
		sessionTTL:  sessionTTL,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Authenticate verifies credentials and opens a new session.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (AuthenticateResult, error) {
	logger := serviceLogger(ctx, s.logger, "auth", "authenticate")

	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" || params.Password == "" {
		return AuthenticateResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.Info("login rejected", "reason", "unknown email")
			return AuthenticateResult{}, ErrInvalidCredentials
		}
		logger.Error("failed to load user", "error", err)
		return AuthenticateResult{}, err
	}

	if err := VerifyPassword(user.PasswordHash, params.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			logger.Info("login rejected", "reason", "password mismatch", "userId", user.ID)
			return AuthenticateResult{}, ErrInvalidCredentials
		}
		logger.Error("failed to verify password", "error", err, "userId", user.ID)
		return AuthenticateResult{}, err
	}

	token, err := generateSessionToken()
	if err != nil {
		logger.Error("failed to generate session token", "error", err)
		return AuthenticateResult{}, err
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.sessionTTL)
	session, err := s.sessions.CreateSession(ctx, persistence.Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: issuedAt,
		UpdatedAt: issuedAt,
	})
	if err != nil {
		logger.Error("failed to persist session", "error", err, "userId", user.ID)
		return AuthenticateResult{}, err
	}

	bearer, err := s.signBearerToken(user, issuedAt, expiresAt)
	if err != nil {
		logger.Error("failed to sign bearer token", "error", err, "userId", user.ID)
		return AuthenticateResult{}, err
	}

	logger.Info("login succeeded", "userId", user.ID)
	return AuthenticateResult{
		Session: SessionInfo{
			UserID:      user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Role:        user.Role,
			ExpiresAt:   session.ExpiresAt,
		},
		Token:       session.Token,
		BearerToken: bearer,
	}, nil
}

// ValidateSession resolves an opaque session token to a principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		serviceLogger(ctx, s.logger, "auth", "validate_session").Error("failed to load session", "error", err)
		return Principal{}, err
	}
	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !s.now().UTC().Before(session.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		serviceLogger(ctx, s.logger, "auth", "validate_session").Error("failed to load user", "error", err)
		return Principal{}, err
	}
	return Principal{UserID: user.ID, Role: user.Role}, nil
}

// ValidateBearerToken verifies a JWT issued at login and returns its principal.
func (s *AuthService) ValidateBearerToken(ctx context.Context, tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrUnauthorized
	}

	userID, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return Principal{}, ErrUnauthorized
	}
	return Principal{UserID: userID, Role: role}, nil
}

// RevokeSession invalidates an opaque session token. Revoking an unknown
// token is not an error so that logout stays idempotent.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.sessions.RevokeSession(ctx, token, s.now().UTC())
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		serviceLogger(ctx, s.logger, "auth", "revoke_session").Error("failed to revoke session", "error", err)
		return err
	}
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry and returns how
// many rows were removed.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.now().UTC())
	if err != nil {
		serviceLogger(ctx, s.logger, "auth", "purge_sessions").Error("failed to purge sessions", "error", err)
		return 0, err
	}
	return removed, nil
}

// RegisterUser creates an account. Only admins may call it.
func (s *AuthService) RegisterUser(ctx context.Context, actor Principal, input UserInput) (persistence.User, error) {
	logger := serviceLogger(ctx, s.logger, "auth", "register_user", "actorId", actor.UserID)
	if !actor.IsAdmin() {
		return persistence.User{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		vErr.add("email", "valid email is required")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("displayName", "display name is required")
	}
	if input.Role != RoleAdmin && input.Role != RoleTechnician {
		vErr.add("role", "role must be admin or technician")
	}
	if len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	hash, err := CreatePasswordHash(input.Password, DefaultArgon2idParams)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		return persistence.User{}, err
	}

	now := s.now().UTC()
	user := persistence.User{
		ID:           s.idGenerator(),
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Role:         input.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.User{}, ErrAlreadyExists
		}
		logger.Error("failed to create user", "error", err)
		return persistence.User{}, err
	}

	logger.Info("user registered", "userId", user.ID, "role", user.Role)
	return user, nil
}

// ListUsers returns every account, for assignee pickers.
func (s *AuthService) ListUsers(ctx context.Context) ([]persistence.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		serviceLogger(ctx, s.logger, "auth", "list_users").Error("failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

func (s *AuthService) signBearerToken(user persistence.User, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func generateSessionToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
