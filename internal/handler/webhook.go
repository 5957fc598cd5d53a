package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	billingstripe "github.com/tcengine/crm/internal/stripe"
	"github.com/tcengine/crm/internal/store"
	"github.com/tcengine/crm/internal/token"
	"github.com/tcengine/crm/internal/validate"
)

// knownPlanIDs are the plan identifiers the reconciler acts on. Events
// carrying any other metadata (or none) are acknowledged and skipped; the
// Stripe account may emit events this application does not care about.
var knownPlanIDs = map[string]bool{
	"TEN_HOURS":       true,
	"FORTY_HOURS":     true,
	"ONE_DOLLAR_TEST": true,
}

type WebhookHandler struct {
	stripeClient  *billingstripe.Client
	customerStore *store.CustomerStore
	purchaseStore *store.PurchaseStore
	eventStore    *store.WebhookEventStore
	mailer        Mailer
	codec         *token.Codec
	contactEmail  string
	baseURL       string
	logger        *slog.Logger
}

func NewWebhookHandler(
	sc *billingstripe.Client,
	cs *store.CustomerStore,
	ps *store.PurchaseStore,
	es *store.WebhookEventStore,
	mailer Mailer,
	codec *token.Codec,
	contactEmail, baseURL string,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		stripeClient:  sc,
		customerStore: cs,
		purchaseStore: ps,
		eventStore:    es,
		mailer:        mailer,
		codec:         codec,
		contactEmail:  contactEmail,
		baseURL:       baseURL,
		logger:        logger,
	}
}

// HandleStripeWebhook processes a webhook delivery effectively-once. Stripe
// delivers at-least-once; the event-id insert is the dedup guard, and the
// handler must answer 2xx whenever the state transition succeeded or Stripe
// will retry forever.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_body")
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeError(w, http.StatusBadRequest, "missing_stripe_signature")
		return
	}

	event, err := h.stripeClient.ConstructWebhookEvent(body, sig)
	if err != nil {
		// Nothing recorded: a corrected retry from Stripe can still succeed.
		writeError(w, http.StatusBadRequest, "invalid_signature")
		return
	}

	duplicate, err := h.eventStore.RecordOnce(event.ID, string(event.Type), event.Livemode, body)
	if err != nil {
		h.logger.Error("record webhook event", "error", err, "event_id", event.ID)
		writeError(w, http.StatusInternalServerError, "webhook_error")
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "duplicate": true})
		return
	}

	if event.Type == "checkout.session.completed" {
		h.handleCheckoutCompleted(w, event)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *WebhookHandler) handleCheckoutCompleted(w http.ResponseWriter, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err, "event_id", event.ID)
		writeError(w, http.StatusInternalServerError, "webhook_error")
		return
	}

	email := ""
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		email = sess.CustomerEmail
	}
	email = validate.NormalizeEmail(email)

	planID := sess.Metadata["planId"]

	if email == "" || !knownPlanIDs[planID] {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "skipped": "missing_email_or_planId"})
		return
	}

	paid := sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid

	customer, err := h.customerStore.UpsertByEmail(email)
	if err != nil {
		h.logger.Error("upsert customer", "error", err, "event_id", event.ID)
		writeError(w, http.StatusInternalServerError, "webhook_error")
		return
	}

	stripeCustomerID := ""
	if sess.Customer != nil {
		stripeCustomerID = sess.Customer.ID
	}
	paymentIntentID := ""
	if sess.PaymentIntent != nil {
		paymentIntentID = sess.PaymentIntent.ID
	}

	purchase, err := h.purchaseStore.ReconcileFromCheckoutSession(store.ReconcileArgs{
		CheckoutSessionID:     sess.ID,
		CustomerID:            customer.ID,
		PlanID:                planID,
		Paid:                  paid,
		StripeCustomerID:      stripeCustomerID,
		StripePaymentIntentID: paymentIntentID,
		AmountTotal:           sess.AmountTotal,
		HasAmountTotal:        sess.AmountTotal != 0,
		Currency:              string(sess.Currency),
	})
	if err != nil {
		h.logger.Error("reconcile purchase", "error", err, "event_id", event.ID)
		writeError(w, http.StatusInternalServerError, "webhook_error")
		return
	}

	// Notifications are best-effort: the purchase row is the source of
	// truth, and a failed email must not make Stripe retry the event.
	if paid {
		h.notifyPaid(purchase.ID, planID, email, &sess)
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *WebhookHandler) notifyPaid(purchaseID, planID, email string, sess *stripe.CheckoutSession) {
	if !h.mailer.Configured() {
		h.logger.Info("paid purchase, mailer not configured", "purchase_id", purchaseID, "plan", planID)
		return
	}

	subject := "[TC Engine] Paid: " + planID
	if planID == "ONE_DOLLAR_TEST" {
		subject = "[TC Engine][test] Paid: " + planID
	}

	adminText := strings.Join([]string{
		"Plan: " + planID,
		"Customer email: " + email,
		"Stripe session: " + sess.ID,
		"Amount total: " + formatAmount(sess.AmountTotal),
		"Currency: " + string(sess.Currency),
		"Time: " + time.Now().UTC().Format(time.RFC3339),
	}, "\n")

	if err := h.mailer.Send(h.contactEmail, subject, adminText, ""); err != nil {
		h.logger.Error("send paid notification", "error", err, "purchase_id", purchaseID)
	}

	receiptLines := []string{
		"Thanks — we received your payment.",
		"",
		"Plan: " + planID,
		"",
		"We'll follow up shortly to schedule the engagement.",
	}
	if intakeTok, err := h.codec.SignIntakeLink(purchaseID); err == nil {
		receiptLines = append(receiptLines,
			"",
			"To help us prepare, please fill in the engagement intake form:",
			h.baseURL+"/intake?token="+intakeTok,
		)
	}
	receiptLines = append(receiptLines,
		"",
		"If anything looks wrong, reply to this email.",
	)

	if err := h.mailer.Send(email, "TC Engine — payment received", strings.Join(receiptLines, "\n"), h.contactEmail); err != nil {
		h.logger.Error("send receipt", "error", err, "purchase_id", purchaseID)
	}
}

func formatAmount(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
