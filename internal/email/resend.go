// Package email sends transactional mail through Resend. All sends are
// best-effort from the caller's point of view: handlers log failures and
// move on, because the database write is the source of truth.
package email

import (
	"fmt"

	"github.com/resendlabs/resend-go"
)

type Client struct {
	resend    *resend.Client
	fromEmail string
}

func NewClient(apiKey, fromEmail string) *Client {
	c := &Client{fromEmail: fromEmail}
	if apiKey != "" {
		c.resend = resend.NewClient(apiKey)
	}
	return c
}

// Configured returns true if an API key was provided.
func (c *Client) Configured() bool {
	return c.resend != nil
}

// Send sends a plain-text email. replyTo may be empty.
func (c *Client) Send(to, subject, text, replyTo string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing api key")
	}

	req := &resend.SendEmailRequest{
		From:    c.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    text,
		ReplyTo: replyTo,
	}
	if _, err := c.resend.Emails.Send(req); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
