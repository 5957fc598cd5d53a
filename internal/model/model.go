package model

import "time"

// Purchase status values. The only modeled transition is PENDING -> PAID;
// abandoned checkouts simply stay PENDING.
const (
	PurchaseStatusPending = "PENDING"
	PurchaseStatusPaid    = "PAID"
)

// Lead kinds.
const (
	LeadKindTechnicalBrief  = "TECHNICAL_BRIEF"
	LeadKindCheckoutStarted = "CHECKOUT_STARTED"
)

type Customer struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type Lead struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	Message    *string   `json:"message"`
	IP         *string   `json:"ip"`
	UserAgent  *string   `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

type Purchase struct {
	ID                      string     `json:"id"`
	CustomerID              string     `json:"customer_id"`
	PlanID                  string     `json:"plan_id"`
	Status                  string     `json:"status"`
	StripeCheckoutSessionID string     `json:"stripe_checkout_session_id"`
	StripeCustomerID        *string    `json:"stripe_customer_id"`
	StripePaymentIntentID   *string    `json:"stripe_payment_intent_id"`
	AmountTotal             *int64     `json:"amount_total"`
	Currency                *string    `json:"currency"`
	PaidAt                  *time.Time `json:"paid_at"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

type WebhookEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Livemode  bool      `json:"livemode"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

type EngagementIntake struct {
	PurchaseID  string    `json:"purchase_id"`
	Data        string    `json:"data"`
	SubmittedAt time.Time `json:"submitted_at"`
}
