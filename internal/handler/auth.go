package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tcengine/crm/internal/auth"
	"github.com/tcengine/crm/internal/token"
	"github.com/tcengine/crm/internal/validate"
)

const adminSessionCookie = "tc_admin_session"

type AuthHandler struct {
	codec         *token.Codec
	allowlist     *auth.Allowlist
	mailer        Mailer
	baseURL       string
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	codec *token.Codec,
	allowlist *auth.Allowlist,
	mailer Mailer,
	baseURL string,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		codec:         codec,
		allowlist:     allowlist,
		mailer:        mailer,
		baseURL:       baseURL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// safeNextPath keeps magic-link redirects on-site.
func safeNextPath(next string) string {
	if strings.HasPrefix(next, "/") && !strings.Contains(next, "://") {
		return next
	}
	return "/admin"
}

// RequestMagicLink emails a one-time login link to an allowlisted admin.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Next  string `json:"next"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	email := validate.NormalizeEmail(req.Email)
	if !validate.IsValidEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	if !h.allowlist.Contains(email) {
		writeError(w, http.StatusForbidden, "not_allowed")
		return
	}

	tok, err := h.codec.SignAdminMagicLink(email)
	if err != nil {
		h.logger.Error("sign magic link", "error", err)
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	link := h.baseURL + "/api/auth/admin/callback?token=" + url.QueryEscape(tok) +
		"&next=" + url.QueryEscape(safeNextPath(req.Next))

	text := strings.Join([]string{
		"Here is your one-time login link:",
		"",
		link,
		"",
		"If you did not request this, you can ignore the email.",
	}, "\n")

	if err := h.mailer.Send(email, "TC Engine — admin login link", text, ""); err != nil {
		h.logger.Error("send magic link", "error", err)
		writeError(w, http.StatusInternalServerError, "email_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Callback verifies the magic-link token and establishes the admin session
// cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	next := safeNextPath(r.URL.Query().Get("next"))
	loginURL := h.baseURL + "/login?next=" + url.QueryEscape(next)

	email, ok := h.codec.VerifyAdminMagicLink(tok)
	if !ok || !h.allowlist.Contains(email) {
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
		return
	}

	sessionTok, err := h.codec.SignAdminSession(email)
	if err != nil {
		h.logger.Error("sign session", "error", err)
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     adminSessionCookie,
		Value:    sessionTok,
		Path:     "/",
		MaxAge:   int(token.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.baseURL+next, http.StatusSeeOther)
}

// Logout clears the session cookie. Stateless tokens cannot be revoked, so
// the cookie removal is the whole operation.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.baseURL+"/", http.StatusSeeOther)
}
