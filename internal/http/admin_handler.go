package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/persistence"
)

type auditLog interface {
	List(ctx context.Context, q audit.Query) ([]audit.Entry, error)
}

type userDirectory interface {
	List(ctx context.Context) ([]identity.Identity, error)
	Register(ctx context.Context, reg identity.Registration) (identity.Identity, error)
	SetActive(ctx context.Context, userID string, active bool) error
}

// AdminHandler serves the administrator endpoints: audit trail and users.
type AdminHandler struct {
	audit     auditLog
	users     userDirectory
	responder responder
	logger    *slog.Logger
}

// NewAdminHandler wires the audit log and user directory.
func NewAdminHandler(auditLog auditLog, users userDirectory, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{audit: auditLog, users: users, responder: newResponder(logger), logger: logger}
}

type auditResponse struct {
	Entries []audit.Entry `json:"entries"`
	Count   int           `json:"count"`
}

// ListAudit handles GET /audit?action=&actor=&meeting=&limit=.
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.audit == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	values := r.URL.Query()
	q := audit.Query{
		Action:    audit.Action(strings.TrimSpace(values.Get("action"))),
		ActorID:   strings.TrimSpace(values.Get("actor")),
		MeetingID: strings.TrimSpace(values.Get("meeting")),
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		q.Limit = limit
	}

	entries, err := h.audit.List(r.Context(), q)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, auditResponse{Entries: entries, Count: len(entries)})
}

// ListUsers handles GET /users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	users, err := h.users.List(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if users == nil {
		users = []identity.Identity{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"users": users})
}

type userRequest struct {
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Area     string        `json:"area"`
	Role     identity.Role `json:"role"`
	Password string        `json:"password"`
}

// CreateUser handles POST /users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	created, err := h.users.Register(r.Context(), identity.Registration{
		Email:    req.Email,
		Name:     strings.TrimSpace(req.Name),
		Area:     strings.TrimSpace(req.Area),
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r.Context(), h.logger, "AdminHandler", "CreateUser", "user_id", created.ID).
		InfoContext(r.Context(), "user registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, created)
}

type activeRequest struct {
	Active bool `json:"active"`
}

// SetUserActive handles PUT /users/{id}/active.
func (h *AdminHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}
	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.users.SetActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			h.responder.writeError(r.Context(), w, http.StatusNotFound, errors.New("user not found"))
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
