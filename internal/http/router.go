package http

import (
	"context"
	"log/slog"
	"net/http"
)

// RouterConfig collects the handlers and middleware of the API. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	Meetings *MeetingHandler
	Auth     *AuthHandler
	Admin    *AdminHandler
	// Authenticate wraps every protected route, typically RequireBasicAuth.
	Authenticate func(http.Handler) http.Handler
	// Health reports readiness for GET /healthz.
	Health     func(ctx context.Context) error
	Middleware []func(http.Handler) http.Handler
	Logger     *slog.Logger
}

// NewRouter registers every route on a ServeMux and wraps it in the
// configured middleware, outermost first.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Authenticate == nil {
			return h
		}
		return cfg.Authenticate(h)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return protect(RequireAdmin(cfg.Logger)(h).ServeHTTP)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				newResponder(cfg.Logger).writeError(r.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Auth != nil {
		mux.HandleFunc("POST /login", cfg.Auth.Login)
		mux.HandleFunc("POST /logout", cfg.Auth.Logout)
		mux.Handle("GET /me", protect(cfg.Auth.Me))
	}

	if h := cfg.Meetings; h != nil {
		mux.Handle("GET /meetings", protect(h.List))
		mux.Handle("POST /meetings", protect(h.Create))
		mux.Handle("POST /meetings/series", protect(h.CreateSeries))
		mux.Handle("GET /meetings/range", protect(h.Range))
		mux.Handle("GET /meetings/upcoming", protect(h.Upcoming))
		mux.Handle("GET /meetings/search", protect(h.Search))
		mux.Handle("GET /meetings/stats", protect(h.Stats))
		mux.Handle("GET /meetings/{id}", protect(h.Get))
		mux.Handle("PATCH /meetings/{id}", protect(h.Update))
		mux.Handle("DELETE /meetings/{id}", protect(h.Delete))
		mux.Handle("POST /meetings/{id}/cancel", protect(h.Cancel))
		mux.Handle("POST /meetings/{id}/complete", protect(h.Complete))
	}

	if h := cfg.Admin; h != nil {
		mux.Handle("GET /audit", adminOnly(h.ListAudit))
		mux.Handle("GET /users", adminOnly(h.ListUsers))
		mux.Handle("POST /users", adminOnly(h.CreateUser))
		mux.Handle("PUT /users/{id}/active", adminOnly(h.SetUserActive))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
