// Package stripe wraps the Stripe SDK calls used by checkout and webhook
// handling.
package stripe

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

type Config struct {
	SecretKey       string
	WebhookSecret   string
	TenHoursPrice   string
	FortyHoursPrice string
	OneDollarPrice  string
	BaseURL         string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// PriceIDForPlan maps a consulting plan id to its configured Stripe price.
// Returns "" for unknown plans or unconfigured prices.
func (c *Client) PriceIDForPlan(planID string) string {
	switch planID {
	case "TEN_HOURS":
		return c.cfg.TenHoursPrice
	case "FORTY_HOURS":
		return c.cfg.FortyHoursPrice
	}
	return ""
}

// CreateConsultingCheckout creates a payment-mode checkout session for a
// consulting package and returns its id and URL. The plan id travels in the
// session metadata so the webhook can reconcile the purchase.
func (c *Client) CreateConsultingCheckout(email, planID, priceID string) (id, url string, err error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
				AdjustableQuantity: &stripe.CheckoutSessionLineItemAdjustableQuantityParams{
					Enabled: stripe.Bool(true),
					Minimum: stripe.Int64(1),
					Maximum: stripe.Int64(10),
				},
			},
		},
		SuccessURL: stripe.String(c.cfg.BaseURL + "/pricing?success=1"),
		CancelURL:  stripe.String(c.cfg.BaseURL + "/pricing"),
		Metadata:   map[string]string{"planId": planID},
	}
	sess, err := checksession.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.ID, sess.URL, nil
}

// CreateOneDollarTestCheckout creates the admin's live-mode $1 test session.
func (c *Client) CreateOneDollarTestCheckout(adminEmail string) (string, error) {
	if c.cfg.OneDollarPrice == "" {
		return "", fmt.Errorf("one-dollar test price not configured")
	}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(adminEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.cfg.OneDollarPrice),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.cfg.BaseURL + "/admin?stripe_test=success"),
		CancelURL:  stripe.String(c.cfg.BaseURL + "/admin?stripe_test=cancel"),
		Metadata: map[string]string{
			"purpose":     "admin_one_dollar_test",
			"requestedBy": adminEmail,
		},
	}
	sess, err := checksession.New(params)
	if err != nil {
		return "", fmt.Errorf("create test checkout session: %w", err)
	}
	return sess.URL, nil
}

// RetrieveCheckoutSession fetches a checkout session by id.
func (c *Client) RetrieveCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	sess, err := checksession.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return sess, nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
