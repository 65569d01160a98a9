package middleware

import (
	"context"
	"net/http"

	"github.com/sweetshop/console/internal/shared/cookie"
	"github.com/sweetshop/console/internal/shared/session"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const sessionKey contextKey = "session"

// FromContext extracts the session from the request context; nil when the
// request is anonymous.
func FromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// NewSessionLoader resolves the encrypted session cookie into a live session
// and attaches it to the request context. Anonymous requests pass through
// untouched; the role gates below decide what they may reach.
func NewSessionLoader(store *session.Store, secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := cookie.GetCookie(r, secretKey)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := store.Get(*sessionID)
			if !ok {
				// Stale cookie for an expired or cleared session.
				cookie.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireAuth sends anonymous requests to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := FromContext(r.Context())
		if !sess.IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin sends non-admin users to their own dashboard and anonymous
// requests to the login page.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := FromContext(r.Context())
		if !sess.IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !sess.IsAdmin() {
			http.Redirect(w, r, "/shop", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
