package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/repairops/internal/application"
	"github.com/example/repairops/internal/logging"
)

// SessionCookieName is the cookie the login handler sets.
const SessionCookieName = "repairops_session"

// SessionValidator resolves an opaque session token to a principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
	ValidateBearerToken(ctx context.Context, token string) (application.Principal, error)
}

// RequireSession authenticates every request via the session cookie or an
// Authorization bearer JWT and stores the principal on the context.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal application.Principal
			var err error

			if bearer := bearerToken(r); bearer != "" {
				principal, err = validator.ValidateBearerToken(r.Context(), bearer)
			} else if token := sessionToken(r); token != "" {
				principal, err = validator.ValidateSession(r.Context(), token)
			} else {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
				return
			}

			if err != nil {
				switch {
				case errors.Is(err, application.ErrSessionExpired):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "De sessie is verlopen, log opnieuw in."})
				case errors.Is(err, application.ErrSessionRevoked), errors.Is(err, application.ErrUnauthorized):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "De sessie is ongeldig, log opnieuw in."})
				default:
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "Er ging iets mis bij het controleren van de sessie."})
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger assigns a request id, stores a request scoped logger on the
// context and logs start and completion of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// RateLimit rejects requests beyond the configured rate with 429.
func RateLimit(rps float64, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				responder.writeJSON(r.Context(), w, http.StatusTooManyRequests,
					errorResponse{Message: localizedStatusMessage(http.StatusTooManyRequests)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get("X-Session-Token")
}
