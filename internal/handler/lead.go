package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tcengine/crm/internal/middleware"
	"github.com/tcengine/crm/internal/model"
	"github.com/tcengine/crm/internal/store"
	"github.com/tcengine/crm/internal/validate"
)

type LeadHandler struct {
	customerStore *store.CustomerStore
	leadStore     *store.LeadStore
	mailer        Mailer
	contactEmail  string
	logger        *slog.Logger
}

func NewLeadHandler(
	cs *store.CustomerStore,
	ls *store.LeadStore,
	mailer Mailer,
	contactEmail string,
	logger *slog.Logger,
) *LeadHandler {
	return &LeadHandler{
		customerStore: cs,
		leadStore:     ls,
		mailer:        mailer,
		contactEmail:  contactEmail,
		logger:        logger,
	}
}

// Submit records an inbound lead and notifies the business inbox.
func (h *LeadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Message string `json:"message"`
		Source  string `json:"source"`
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

	source := req.Source
	if source == "" {
		source = "unknown"
	}

	customer, err := h.customerStore.UpsertByEmail(email)
	if err != nil {
		h.logger.Error("upsert customer", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	ip := middleware.RealIP(r)
	userAgent := r.UserAgent()

	if _, err := h.leadStore.Create(customer.ID, model.LeadKindTechnicalBrief, source, req.Message, ip, userAgent); err != nil {
		h.logger.Error("create lead", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	message := req.Message
	if message == "" {
		message = "(none)"
	}
	text := strings.Join([]string{
		"Email: " + email,
		"Source: " + validate.ClampStr(source, 200),
		"Time: " + time.Now().UTC().Format(time.RFC3339),
		"IP: " + ip,
		"User-Agent: " + userAgent,
		"",
		"Message:",
		validate.ClampStr(message, 4000),
	}, "\n")

	if err := h.mailer.Send(h.contactEmail, "[TC Engine] Lead: "+email, text, email); err != nil {
		h.logger.Error("send lead notification", "error", err)
		writeError(w, http.StatusInternalServerError, "email_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
