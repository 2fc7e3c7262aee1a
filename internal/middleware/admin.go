package middleware

import (
	"context"
	"net/http"
)

// AdminSessionCookie is the cookie carrying the admin session token.
const AdminSessionCookie = "admin_session"

type contextKey string

const adminEmailKey contextKey = "admin_email"

// SessionValidator resolves a session token to an admin email.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

// RequireAdmin rejects requests without a valid admin session and puts the
// admin email on the request context.
type RequireAdmin struct {
	sessions SessionValidator
}

func NewRequireAdmin(sessions SessionValidator) *RequireAdmin {
	return &RequireAdmin{sessions: sessions}
}

func (m *RequireAdmin) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AdminSessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		email, err := m.sessions.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminEmailKey, email)))
	})
}

// AdminEmailFromContext returns the authenticated admin email, if any.
func AdminEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(adminEmailKey).(string)
	return email, ok
}
