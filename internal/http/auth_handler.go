package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/example/repairops/internal/application"
)

// AuthHandler serves login, logout and account management endpoints.
type AuthHandler struct {
	auth      *application.AuthService
	responder responder
	logger    *slog.Logger
	secure    bool
}

// NewAuthHandler constructs an AuthHandler. secure controls the session
// cookie's Secure attribute.
func NewAuthHandler(auth *application.AuthService, secure bool, logger *slog.Logger) *AuthHandler {
	logger = defaultLogger(logger)
	return &AuthHandler{
		auth:      auth,
		responder: newResponder(logger),
		logger:    logger,
		secure:    secure,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates credentials, sets the session cookie and returns the
// session with a bearer token for API clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	result, err := h.auth.Authenticate(ctx, application.AuthenticateParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.responder.writeJSON(ctx, w, http.StatusCreated, newSessionView(result.Session, result.BearerToken))
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token := sessionToken(r); token != "" {
		if err := h.auth.RevokeSession(ctx, token); err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, map[string]string{
		"userId": principal.UserID,
		"role":   principal.Role,
	})
}

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

// CreateUser registers a new account. Admin only.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	user, err := h.auth.RegisterUser(ctx, principal, application.UserInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Password:    req.Password,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, newUserView(user))
}

// ListUsers returns every account for assignee pickers.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.auth.ListUsers(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, user := range users {
		views = append(views, newUserView(user))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}
