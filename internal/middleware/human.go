package middleware

import (
	"net/http"

	"github.com/tcengine/crm/internal/token"
)

// HumanCheckCookie is the cookie set after a passed CAPTCHA challenge.
const HumanCheckCookie = "tc_turnstile_ok"

// RequireHumanCheck gates abuse-prone endpoints behind a verified-human
// cookie. bypass is only honored outside production, for local development.
func RequireHumanCheck(codec *token.Codec, bypass bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(HumanCheckCookie)
			if err != nil || cookie.Value == "" || !codec.VerifyHumanCheckCookie(cookie.Value) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"ok":false,"error":"captcha_required","hint":"Verify you are human first and retry the request. See /verify-human."}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
