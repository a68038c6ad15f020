package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/meeting-scheduler/internal/identity"
)

// Authenticator verifies directory credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (identity.Identity, error)
}

// RequireBasicAuth authenticates every request with HTTP Basic credentials
// and attaches the identity to the request context.
func RequireBasicAuth(auth Authenticator, realm string, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	challenge := fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", challenge)
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errors.New("credentials required"))
				return
			}

			who, err := auth.Authenticate(r.Context(), email, password)
			if err != nil {
				switch {
				case errors.Is(err, identity.ErrInvalidCredentials):
					w.Header().Set("WWW-Authenticate", challenge)
					responder.writeError(r.Context(), w, http.StatusUnauthorized, errors.New("invalid credentials"))
				case errors.Is(err, identity.ErrAccountDisabled):
					responder.writeError(r.Context(), w, http.StatusForbidden, errors.New("account disabled"))
				default:
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "credential check failed", "error", err)
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "internal server error"})
				}
				return
			}

			serveAs(w, r, next, who)
		})
	}
}

// SessionValidator resolves session tokens issued by POST /login.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (identity.Identity, error)
}

// RequireSession authenticates requests carrying a session token as a Bearer
// Authorization header or the session cookie. Requests without a token go to
// fallback when it is set and are rejected otherwise.
func RequireSession(sessions SessionValidator, fallback func(http.Handler) http.Handler, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		var fallbackHandler http.Handler
		if fallback != nil {
			fallbackHandler = fallback(next)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				if fallbackHandler != nil {
					fallbackHandler.ServeHTTP(w, r)
					return
				}
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errSessionRequired)
				return
			}

			who, err := sessions.Validate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, identity.ErrSessionInvalid), errors.Is(err, identity.ErrSessionExpired), errors.Is(err, identity.ErrSessionRevoked):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
						ErrorCode: "SESSION_INVALID",
						Message:   "session is no longer valid, log in again",
					})
				case errors.Is(err, identity.ErrAccountDisabled):
					responder.writeError(r.Context(), w, http.StatusForbidden, errors.New("account disabled"))
				default:
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "session check failed", "error", err)
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "internal server error"})
				}
				return
			}
			serveAs(w, r, next, who)
		})
	}
}

// serveAs attaches the authenticated identity to the request and tags the
// request logger with the actor.
func serveAs(w http.ResponseWriter, r *http.Request, next http.Handler, who identity.Identity) {
	ctx := identity.WithIdentity(r.Context(), who)
	if reqLogger := LoggerFromContext(ctx); reqLogger != nil {
		ctx = ContextWithLogger(ctx, reqLogger.With("actor_id", who.ID))
	}
	next.ServeHTTP(w, r.WithContext(ctx))
}

func sessionToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
		return ""
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// RequireAdmin rejects authenticated users without the admin role.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, ok := IdentityFromContext(r.Context())
			if !ok || !who.IsAdmin() {
				responder.writeError(r.Context(), w, http.StatusForbidden, errAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request-scoped logger and logs each request with
// its status and duration.
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

			ctx := ContextWithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
