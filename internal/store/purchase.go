package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tcengine/crm/internal/model"
)

type PurchaseStore struct {
	db *sql.DB
}

func NewPurchaseStore(db *sql.DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

func scanPurchase(scanner interface{ Scan(...any) error }) (*model.Purchase, error) {
	var p model.Purchase
	var stripeCustomerID, stripePaymentIntentID, currency sql.NullString
	var amountTotal sql.NullInt64
	var paidAt sql.NullTime
	err := scanner.Scan(
		&p.ID, &p.CustomerID, &p.PlanID, &p.Status, &p.StripeCheckoutSessionID,
		&stripeCustomerID, &stripePaymentIntentID, &amountTotal, &currency,
		&paidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stripeCustomerID.Valid {
		p.StripeCustomerID = &stripeCustomerID.String
	}
	if stripePaymentIntentID.Valid {
		p.StripePaymentIntentID = &stripePaymentIntentID.String
	}
	if amountTotal.Valid {
		p.AmountTotal = &amountTotal.Int64
	}
	if currency.Valid {
		p.Currency = &currency.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return &p, nil
}

const purchaseCols = `id, customer_id, plan_id, status, stripe_checkout_session_id,
	stripe_customer_id, stripe_payment_intent_id, amount_total, currency,
	paid_at, created_at, updated_at`

// UpsertPending records the start of a checkout, keyed by the provider's
// checkout-session id so a retried start is a harmless overwrite.
func (s *PurchaseStore) UpsertPending(customerID, planID, checkoutSessionID string) (*model.Purchase, error) {
	_, err := s.db.Exec(
		`INSERT INTO purchases (id, customer_id, plan_id, status, stripe_checkout_session_id)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(stripe_checkout_session_id) DO UPDATE SET
			customer_id = excluded.customer_id,
			plan_id = excluded.plan_id,
			status = ?,
			updated_at = CURRENT_TIMESTAMP`,
		newID("p_"), customerID, planID, model.PurchaseStatusPending, checkoutSessionID,
		model.PurchaseStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert pending purchase: %w", err)
	}
	return s.GetBySessionID(checkoutSessionID)
}

// ReconcileArgs carries what the provider reported for a completed checkout.
type ReconcileArgs struct {
	CheckoutSessionID     string
	CustomerID            string
	PlanID                string
	Paid                  bool
	StripeCustomerID      string
	StripePaymentIntentID string
	AmountTotal           int64
	HasAmountTotal        bool
	Currency              string
}

// ReconcileFromCheckoutSession upserts the purchase for a checkout-completed
// event. Paid checkouts transition to PAID with paid_at set; unpaid ones
// stay PENDING. The upsert key is the checkout-session id, so redelivery of
// the same event (if it ever got past the dedup guard) converges on the same
// row.
func (s *PurchaseStore) ReconcileFromCheckoutSession(args ReconcileArgs) (*model.Purchase, error) {
	status := model.PurchaseStatusPending
	var paidAt any
	if args.Paid {
		status = model.PurchaseStatusPaid
		paidAt = time.Now().UTC()
	}

	var amountTotal any
	if args.HasAmountTotal {
		amountTotal = args.AmountTotal
	}

	_, err := s.db.Exec(
		`INSERT INTO purchases (id, customer_id, plan_id, status, stripe_checkout_session_id,
			stripe_customer_id, stripe_payment_intent_id, amount_total, currency, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(stripe_checkout_session_id) DO UPDATE SET
			customer_id = excluded.customer_id,
			plan_id = excluded.plan_id,
			status = excluded.status,
			stripe_customer_id = excluded.stripe_customer_id,
			stripe_payment_intent_id = excluded.stripe_payment_intent_id,
			amount_total = excluded.amount_total,
			currency = excluded.currency,
			paid_at = excluded.paid_at,
			updated_at = CURRENT_TIMESTAMP`,
		newID("p_"), args.CustomerID, args.PlanID, status, args.CheckoutSessionID,
		nullable(args.StripeCustomerID), nullable(args.StripePaymentIntentID),
		amountTotal, nullable(args.Currency), paidAt,
	)
	if err != nil {
		return nil, fmt.Errorf("reconcile purchase: %w", err)
	}
	return s.GetBySessionID(args.CheckoutSessionID)
}

func (s *PurchaseStore) GetByID(id string) (*model.Purchase, error) {
	row := s.db.QueryRow(`SELECT `+purchaseCols+` FROM purchases WHERE id = ?`, id)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

func (s *PurchaseStore) GetBySessionID(checkoutSessionID string) (*model.Purchase, error) {
	row := s.db.QueryRow(`SELECT `+purchaseCols+` FROM purchases WHERE stripe_checkout_session_id = ?`, checkoutSessionID)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase by session: %w", err)
	}
	return p, nil
}

func (s *PurchaseStore) ListByCustomer(customerID string) ([]model.Purchase, error) {
	rows, err := s.db.Query(
		`SELECT `+purchaseCols+` FROM purchases WHERE customer_id = ? ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}
