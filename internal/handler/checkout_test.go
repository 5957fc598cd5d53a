package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tcengine/crm/internal/store"
	billingstripe "github.com/tcengine/crm/internal/stripe"
)

// newCheckoutHandler builds a handler with no Stripe prices configured, so
// validation paths can be exercised without network access.
func newCheckoutHandler(t *testing.T) *CheckoutHandler {
	t.Helper()
	db := setupTestDB(t)
	client := billingstripe.NewClient(billingstripe.Config{})
	return NewCheckoutHandler(client, store.NewCustomerStore(db), store.NewLeadStore(db),
		store.NewPurchaseStore(db), newFakeMailer(), "owner@tcengine.test", "https://tcengine.test", testLogger())
}

func postCheckout(t *testing.T, h *CheckoutHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/billing/create-checkout-session", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateCheckoutSession(rec, req)
	return rec
}

func TestCreateCheckoutInvalidJSON(t *testing.T) {
	h := newCheckoutHandler(t)
	rec := postCheckout(t, h, `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateCheckoutInvalidEmail(t *testing.T) {
	h := newCheckoutHandler(t)
	rec := postCheckout(t, h, `{"email":"nope","planId":"TEN_HOURS"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "invalid_email" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestCreateCheckoutUnknownPlan(t *testing.T) {
	h := newCheckoutHandler(t)

	for _, plan := range []string{"", "HUNDRED_HOURS", "ONE_DOLLAR_TEST", "ten_hours"} {
		rec := postCheckout(t, h, `{"email":"buyer@example.com","planId":"`+plan+`"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("plan %q: status = %d, want 400", plan, rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "invalid_plan" {
			t.Errorf("plan %q: error = %v", plan, body["error"])
		}
	}
}

func TestCreateCheckoutPriceNotConfigured(t *testing.T) {
	h := newCheckoutHandler(t)
	rec := postCheckout(t, h, `{"email":"buyer@example.com","planId":"TEN_HOURS"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "price_not_configured" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestOneDollarTestRequiresAdminContext(t *testing.T) {
	h := newCheckoutHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stripe/one-dollar-test", nil)
	rec := httptest.NewRecorder()
	h.OneDollarTest(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
