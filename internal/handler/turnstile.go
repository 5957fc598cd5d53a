package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tcengine/crm/internal/middleware"
	"github.com/tcengine/crm/internal/token"
	"github.com/tcengine/crm/internal/turnstile"
)

type TurnstileHandler struct {
	client        *turnstile.Client
	codec         *token.Codec
	bypass        bool
	secureCookies bool
	logger        *slog.Logger
}

func NewTurnstileHandler(client *turnstile.Client, codec *token.Codec, bypass, secureCookies bool, logger *slog.Logger) *TurnstileHandler {
	return &TurnstileHandler{
		client:        client,
		codec:         codec,
		bypass:        bypass,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Verify validates a Turnstile challenge response and sets the short-lived
// verified-human cookie that gates the abuse-prone endpoints.
func (h *TurnstileHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h.bypass {
		h.setHumanCookie(w)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "bypass": true})
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing_token")
		return
	}

	if !h.client.Configured() {
		writeError(w, http.StatusServiceUnavailable, "not_configured")
		return
	}

	result, err := h.client.Verify(req.Token, middleware.RealIP(r))
	if err != nil {
		h.logger.Error("turnstile verify", "error", err)
		writeError(w, http.StatusBadGateway, "turnstile_unavailable")
		return
	}
	if !result.OK {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"ok":    false,
			"error": "turnstile_failed",
			"codes": result.ErrorCodes,
		})
		return
	}

	h.setHumanCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *TurnstileHandler) setHumanCookie(w http.ResponseWriter) {
	value, err := h.codec.SignHumanCheckCookie()
	if err != nil {
		h.logger.Error("sign human-check cookie", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.HumanCheckCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(token.HumanCheckTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
