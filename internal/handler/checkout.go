package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tcengine/crm/internal/auth"
	"github.com/tcengine/crm/internal/middleware"
	"github.com/tcengine/crm/internal/model"
	billingstripe "github.com/tcengine/crm/internal/stripe"
	"github.com/tcengine/crm/internal/store"
	"github.com/tcengine/crm/internal/validate"
)

// checkoutPlanIDs are the plans purchasable from the public pricing page.
// The admin $1 test checkout is minted separately.
var checkoutPlanIDs = map[string]bool{
	"TEN_HOURS":   true,
	"FORTY_HOURS": true,
}

type CheckoutHandler struct {
	stripeClient  *billingstripe.Client
	customerStore *store.CustomerStore
	leadStore     *store.LeadStore
	purchaseStore *store.PurchaseStore
	mailer        Mailer
	contactEmail  string
	baseURL       string
	logger        *slog.Logger
}

func NewCheckoutHandler(
	sc *billingstripe.Client,
	cs *store.CustomerStore,
	ls *store.LeadStore,
	ps *store.PurchaseStore,
	mailer Mailer,
	contactEmail, baseURL string,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		stripeClient:  sc,
		customerStore: cs,
		leadStore:     ls,
		purchaseStore: ps,
		mailer:        mailer,
		contactEmail:  contactEmail,
		baseURL:       baseURL,
		logger:        logger,
	}
}

// CreateCheckoutSession starts a Stripe checkout for a consulting plan and
// records the contact as a lead plus a PENDING purchase.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		PlanID string `json:"planId"`
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
	if !checkoutPlanIDs[req.PlanID] {
		writeError(w, http.StatusBadRequest, "invalid_plan")
		return
	}

	priceID := h.stripeClient.PriceIDForPlan(req.PlanID)
	if priceID == "" {
		h.logger.Error("price not configured", "plan", req.PlanID)
		writeError(w, http.StatusServiceUnavailable, "price_not_configured")
		return
	}

	sessionID, sessionURL, err := h.stripeClient.CreateConsultingCheckout(email, req.PlanID, priceID)
	if err != nil {
		h.logger.Error("create checkout session", "error", err, "plan", req.PlanID)
		writeError(w, http.StatusInternalServerError, "stripe_error")
		return
	}
	if sessionURL == "" {
		writeError(w, http.StatusBadGateway, "stripe_missing_checkout_url")
		return
	}

	customer, err := h.customerStore.UpsertByEmail(email)
	if err != nil {
		h.logger.Error("upsert customer", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if _, err := h.leadStore.Create(customer.ID, model.LeadKindCheckoutStarted,
		"checkout_"+req.PlanID, "", middleware.RealIP(r), r.UserAgent()); err != nil {
		h.logger.Error("log checkout lead", "error", err)
	}

	if _, err := h.purchaseStore.UpsertPending(customer.ID, req.PlanID, sessionID); err != nil {
		h.logger.Error("upsert pending purchase", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "url": sessionURL})
}

// Success handles the browser redirect back from Stripe. Purchase state is
// owned by the webhook; this endpoint only sends the courtesy emails and
// bounces the visitor back to pricing.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	pricingURL := h.baseURL + "/pricing"

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Redirect(w, r, pricingURL, http.StatusSeeOther)
		return
	}

	sess, err := h.stripeClient.RetrieveCheckoutSession(sessionID)
	if err != nil {
		h.logger.Error("retrieve checkout session", "error", err)
		http.Redirect(w, r, pricingURL, http.StatusSeeOther)
		return
	}

	if sess.PaymentStatus != "paid" {
		http.Redirect(w, r, pricingURL, http.StatusSeeOther)
		return
	}

	email := ""
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		email = sess.CustomerEmail
	}
	planID := sess.Metadata["planId"]
	if planID == "" {
		planID = "unknown"
	}

	if h.mailer.Configured() {
		adminText := strings.Join([]string{
			"Plan: " + planID,
			"Customer email: " + email,
			"Stripe session: " + sessionID,
			"Amount total: " + formatAmount(sess.AmountTotal),
			"Currency: " + string(sess.Currency),
			"Time: " + time.Now().UTC().Format(time.RFC3339),
		}, "\n")
		if err := h.mailer.Send(h.contactEmail, "[TC Engine] Paid: "+planID, adminText, ""); err != nil {
			h.logger.Error("send success notification", "error", err)
		}
	}

	http.Redirect(w, r, pricingURL+"?success=1", http.StatusSeeOther)
}

// OneDollarTest lets a logged-in admin run a live $1 charge end to end.
func (h *CheckoutHandler) OneDollarTest(w http.ResponseWriter, r *http.Request) {
	adminEmail := auth.AdminEmailFromContext(r.Context())
	if adminEmail == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	url, err := h.stripeClient.CreateOneDollarTestCheckout(adminEmail)
	if err != nil {
		h.logger.Error("create one-dollar test checkout", "error", err)
		writeError(w, http.StatusInternalServerError, "stripe_error")
		return
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}
