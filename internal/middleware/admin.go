package middleware

import (
	"net/http"

	"github.com/tcengine/crm/internal/auth"
	"github.com/tcengine/crm/internal/token"
)

// AdminSessionCookie is the cookie carrying the signed admin session token.
const AdminSessionCookie = "tc_admin_session"

// RequireAdmin validates the admin session cookie and the allowlist, and
// populates the admin email in the request context. Both checks fail closed.
func RequireAdmin(codec *token.Codec, allowlist *auth.Allowlist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AdminSessionCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			email, ok := codec.VerifyAdminSession(cookie.Value)
			if !ok || !allowlist.Contains(email) {
				unauthorized(w)
				return
			}

			ctx := auth.WithAdminEmail(r.Context(), email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"ok":false,"error":"unauthorized"}`))
}
