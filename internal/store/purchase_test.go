package store

import (
	"testing"

	"github.com/tcengine/crm/internal/model"
)

func TestPurchaseUpsertPending(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCustomerStore(db)
	ps := NewPurchaseStore(db)

	c, _ := cs.UpsertByEmail("alice@example.com")

	p, err := ps.UpsertPending(c.ID, "TEN_HOURS", "cs_test_1")
	if err != nil {
		t.Fatalf("upsert pending: %v", err)
	}
	if p.Status != model.PurchaseStatusPending {
		t.Errorf("status = %q, want PENDING", p.Status)
	}
	if p.PaidAt != nil {
		t.Error("paid_at set on pending purchase")
	}
	if p.ID[:2] != "p_" {
		t.Errorf("id = %q, want p_ prefix", p.ID)
	}

	// Retrying the same checkout start converges on the same row.
	again, err := ps.UpsertPending(c.ID, "TEN_HOURS", "cs_test_1")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("ids differ: %q vs %q", again.ID, p.ID)
	}
}

func TestPurchaseReconcilePaid(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCustomerStore(db)
	ps := NewPurchaseStore(db)

	c, _ := cs.UpsertByEmail("alice@example.com")
	ps.UpsertPending(c.ID, "TEN_HOURS", "cs_test_1")

	p, err := ps.ReconcileFromCheckoutSession(ReconcileArgs{
		CheckoutSessionID:     "cs_test_1",
		CustomerID:            c.ID,
		PlanID:                "TEN_HOURS",
		Paid:                  true,
		StripeCustomerID:      "cus_123",
		StripePaymentIntentID: "pi_456",
		AmountTotal:           250000,
		HasAmountTotal:        true,
		Currency:              "usd",
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if p.Status != model.PurchaseStatusPaid {
		t.Errorf("status = %q, want PAID", p.Status)
	}
	if p.PaidAt == nil {
		t.Error("paid_at not set")
	}
	if p.StripeCustomerID == nil || *p.StripeCustomerID != "cus_123" {
		t.Errorf("stripe customer id = %v", p.StripeCustomerID)
	}
	if p.StripePaymentIntentID == nil || *p.StripePaymentIntentID != "pi_456" {
		t.Errorf("payment intent id = %v", p.StripePaymentIntentID)
	}
	if p.AmountTotal == nil || *p.AmountTotal != 250000 {
		t.Errorf("amount total = %v", p.AmountTotal)
	}
	if p.Currency == nil || *p.Currency != "usd" {
		t.Errorf("currency = %v", p.Currency)
	}
}

func TestPurchaseReconcileUnpaidStaysPending(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCustomerStore(db)
	ps := NewPurchaseStore(db)

	c, _ := cs.UpsertByEmail("alice@example.com")

	p, err := ps.ReconcileFromCheckoutSession(ReconcileArgs{
		CheckoutSessionID: "cs_test_2",
		CustomerID:        c.ID,
		PlanID:            "FORTY_HOURS",
		Paid:              false,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if p.Status != model.PurchaseStatusPending {
		t.Errorf("status = %q, want PENDING", p.Status)
	}
	if p.PaidAt != nil {
		t.Error("paid_at set on unpaid purchase")
	}
	if p.AmountTotal != nil {
		t.Errorf("amount total = %v, want nil", p.AmountTotal)
	}
}

func TestPurchaseReconcileWithoutPriorPendingCreates(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCustomerStore(db)
	ps := NewPurchaseStore(db)

	c, _ := cs.UpsertByEmail("alice@example.com")

	// Webhook can arrive for a session this process never saw start.
	p, err := ps.ReconcileFromCheckoutSession(ReconcileArgs{
		CheckoutSessionID: "cs_unseen",
		CustomerID:        c.ID,
		PlanID:            "TEN_HOURS",
		Paid:              true,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if p.Status != model.PurchaseStatusPaid {
		t.Errorf("status = %q, want PAID", p.Status)
	}
}

func TestPurchaseListByCustomer(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCustomerStore(db)
	ps := NewPurchaseStore(db)

	a, _ := cs.UpsertByEmail("alice@example.com")
	ps.UpsertPending(a.ID, "TEN_HOURS", "cs_1")
	ps.UpsertPending(a.ID, "FORTY_HOURS", "cs_2")

	purchases, err := ps.ListByCustomer(a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(purchases) != 2 {
		t.Fatalf("len = %d, want 2", len(purchases))
	}
}
