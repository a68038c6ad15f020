package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/meeting"
)

const defaultUpcomingDays = 7

type meetingService interface {
	List(ctx context.Context, filter application.Filter) ([]*meeting.Meeting, error)
	GetByID(ctx context.Context, id string) (*meeting.Meeting, error)
	GetByDateRange(ctx context.Context, from, to string) ([]*meeting.Meeting, error)
	GetUpcoming(ctx context.Context, days int) ([]*meeting.Meeting, error)
	Search(ctx context.Context, query string) ([]*meeting.Meeting, error)
	Stats(ctx context.Context) (application.Stats, error)
	Create(ctx context.Context, draft meeting.Draft) (*meeting.Meeting, error)
	CreateSeries(ctx context.Context, req application.SeriesRequest) ([]*meeting.Meeting, error)
	Update(ctx context.Context, id string, patch meeting.Patch) (*meeting.Meeting, error)
	Delete(ctx context.Context, id string) (bool, error)
	Cancel(ctx context.Context, id, reason string) (*meeting.Meeting, error)
	Complete(ctx context.Context, id string) (*meeting.Meeting, error)
}

// MeetingHandler serves the /meetings endpoints.
type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

// NewMeetingHandler wires the handler to the meeting service.
func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeetingHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *MeetingHandler) available(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// List handles GET /meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	meetings, err := h.service.List(r.Context(), filterFromQuery(r.URL.Query()))
	h.renderList(r.Context(), w, meetings, err)
}

// Range handles GET /meetings/range?from=&to=.
func (h *MeetingHandler) Range(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	q := r.URL.Query()
	meetings, err := h.service.GetByDateRange(r.Context(), strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to")))
	h.renderList(r.Context(), w, meetings, err)
}

// Upcoming handles GET /meetings/upcoming?days=.
func (h *MeetingHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	days := defaultUpcomingDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("days must be a non-negative integer"))
			return
		}
		days = n
	}
	meetings, err := h.service.GetUpcoming(r.Context(), days)
	h.renderList(r.Context(), w, meetings, err)
}

// Search handles GET /meetings/search?q=.
func (h *MeetingHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	meetings, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	h.renderList(r.Context(), w, meetings, err)
}

// Stats handles GET /meetings/stats.
func (h *MeetingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stats)
}

// Get handles GET /meetings/{id}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetByID(r.Context(), id)
	h.renderMeeting(r.Context(), w, m, err, http.StatusOK)
}

// Create handles POST /meetings.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var draft meeting.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		handlerLogger(r.Context(), h.logger, "MeetingHandler", "Create", "error_kind", "bad_request").
			WarnContext(r.Context(), "failed to decode meeting", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	m, err := h.service.Create(r.Context(), draft)
	h.renderMeeting(r.Context(), w, m, err, http.StatusCreated)
}

type seriesRequest struct {
	meeting.Draft
	Rule  string `json:"rule"`
	Limit int    `json:"limit"`
}

// CreateSeries handles POST /meetings/series.
func (h *MeetingHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req seriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	rule := req.Rule
	if rule == "" {
		rule = req.Draft.Recurrence
	}
	series, err := h.service.CreateSeries(r.Context(), application.SeriesRequest{Draft: req.Draft, Rule: rule, Limit: req.Limit})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listResponse{Meetings: nonNil(series), Count: len(series)})
}

// Update handles PATCH /meetings/{id}.
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}
	var patch meeting.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	m, err := h.service.Update(r.Context(), id, patch)
	h.renderMeeting(r.Context(), w, m, err, http.StatusOK)
}

// Delete handles DELETE /meetings/{id}.
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Delete(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /meetings/{id}/cancel. The body is optional.
func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}
	// The reason is optional, so an empty body (including a chunked one) is fine.
	var req cancelRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}
	m, err := h.service.Cancel(r.Context(), id, strings.TrimSpace(req.Reason))
	h.renderMeeting(r.Context(), w, m, err, http.StatusOK)
}

// Complete handles POST /meetings/{id}/complete.
func (h *MeetingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}
	m, err := h.service.Complete(r.Context(), id)
	h.renderMeeting(r.Context(), w, m, err, http.StatusOK)
}

func (h *MeetingHandler) meetingID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return "", false
	}
	return id, true
}

func (h *MeetingHandler) renderMeeting(ctx context.Context, w http.ResponseWriter, m *meeting.Meeting, err error, status int) {
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, status, m)
}

func (h *MeetingHandler) renderList(ctx context.Context, w http.ResponseWriter, meetings []*meeting.Meeting, err error) {
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, listResponse{Meetings: nonNil(meetings), Count: len(meetings)})
}

type listResponse struct {
	Meetings []*meeting.Meeting `json:"meetings"`
	Count    int                `json:"count"`
}

func nonNil(meetings []*meeting.Meeting) []*meeting.Meeting {
	if meetings == nil {
		return []*meeting.Meeting{}
	}
	return meetings
}

func filterFromQuery(values url.Values) application.Filter {
	return application.Filter{
		Status:    meeting.Status(strings.TrimSpace(values.Get("status"))),
		Organizer: strings.TrimSpace(values.Get("organizer")),
		DateFrom:  strings.TrimSpace(values.Get("from")),
		DateTo:    strings.TrimSpace(values.Get("to")),
		Priority:  meeting.Priority(strings.TrimSpace(values.Get("priority"))),
		Search:    strings.TrimSpace(values.Get("q")),
	}
}
