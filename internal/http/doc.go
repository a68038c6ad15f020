// Package http exposes the meeting service as a JSON API.
//
// Every endpoint except POST /login, POST /logout and GET /healthz requires
// a session token of an active directory user, sent as a Bearer token or the
// session_token cookie. HTTP Basic credentials are accepted only when the
// fallback is enabled:
//   - POST /login: verifies credentials, issues a session token, records a
//     login audit entry and returns the token with the identity.
//   - POST /logout: revokes the session token.
//   - GET /me: the authenticated identity.
//   - GET /meetings: list with optional status, organizer, from, to, priority
//     and q filters. GET /meetings/range?from=&to=, /meetings/upcoming?days=,
//     /meetings/search?q= and /meetings/stats are the focused queries.
//   - POST /meetings, POST /meetings/series: create one meeting, or a
//     recurring series from an RRULE.
//   - GET, PATCH, DELETE /meetings/{id}; POST /meetings/{id}/cancel and
//     /meetings/{id}/complete.
//   - GET /audit: audit trail, administrators only.
//   - GET /users, POST /users, PUT /users/{id}/active: directory management,
//     administrators only.
//
// Meetings are exchanged in their plain JSON form (see meeting.Meeting).
// Errors use errorResponse with a stable error_code.
package http
