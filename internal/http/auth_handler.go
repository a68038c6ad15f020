package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/identity"
)

const sessionCookieName = "session_token"

type loginAuditor interface {
	RecordDetails(ctx context.Context, action audit.Action, description, meetingID string, details map[string]string) error
}

type sessionIssuer interface {
	Issue(ctx context.Context, who identity.Identity) (identity.Session, error)
	Revoke(ctx context.Context, token string) error
}

// AuthHandler serves POST /login, POST /logout and GET /me.
type AuthHandler struct {
	auth      Authenticator
	sessions  sessionIssuer
	audit     loginAuditor
	responder responder
	logger    *slog.Logger
}

// NewAuthHandler wires credential checks, session issuing and the login audit
// trail. auditor may be nil.
func NewAuthHandler(auth Authenticator, sessions sessionIssuer, auditor loginAuditor, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{auth: auth, sessions: sessions, audit: auditor, responder: newResponder(logger), logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials, issues a session token and records the login.
// The token is returned in the body and as an HttpOnly cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.auth == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := handlerLogger(r.Context(), h.logger, "AuthHandler", "Login", "email", email)

	who, err := h.auth.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
				ErrorCode: "INVALID_CREDENTIALS",
				Message:   "email or password is incorrect",
			})
		case errors.Is(err, identity.ErrAccountDisabled):
			h.responder.writeJSON(r.Context(), w, http.StatusForbidden, errorResponse{
				ErrorCode: "ACCOUNT_DISABLED",
				Message:   "the account is disabled",
			})
		default:
			logger.ErrorContext(r.Context(), "authentication failed", "error", err)
			h.responder.handleServiceError(r.Context(), w, err)
		}
		return
	}

	session, err := h.sessions.Issue(r.Context(), who)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to issue session", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.audit != nil {
		ctx := identity.WithIdentity(r.Context(), who)
		if err := h.audit.RecordDetails(ctx, audit.ActionLogin, "user logged in", "", map[string]string{"email": who.Email}); err != nil {
			logger.WarnContext(ctx, "failed to record login", "error", err)
		}
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	logger.InfoContext(r.Context(), "user authenticated", "user_id", who.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, session)
}

// Logout revokes the session token carried by the request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := sessionToken(r)
	if token == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errSessionRequired)
		return
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		if errors.Is(err, identity.ErrSessionInvalid) {
			h.responder.writeError(r.Context(), w, http.StatusUnauthorized, err)
			return
		}
		handlerLogger(r.Context(), h.logger, "AuthHandler", "Logout").ErrorContext(r.Context(), "failed to revoke session", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearSessionCookie(w)
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Me returns the identity attached by the authentication middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	who, ok := IdentityFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errors.New("not authenticated"))
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, who)
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
