package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/papertrade/brokerage/internal/auth"
)

type contextKey int

const userIDKey contextKey = iota

// userID extracts the authenticated user id placed in the request
// context by requireLogin.
func userID(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)
	return id
}

// requireLogin resolves the session cookie to a user id and injects it
// into the request context. Requests without a live session are
// redirected to the login page.
func (h *Handler) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)

		id, err := h.sessions.UserID(r.Context(), token)
		if errors.Is(err, auth.ErrUnauthenticated) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err != nil {
			h.log.WithError(err).Error("session lookup failed")
			h.apology(w, http.StatusInternalServerError, "something went wrong")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// noCache marks every response uncacheable so pages with account
// state are never served stale.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Expires", "0")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
