// Package turnstile verifies Cloudflare Turnstile challenge tokens against
// the siteverify API.
package turnstile

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type Client struct {
	secretKey  string
	endpoint   string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithEndpoint(endpoint string) Option {
	return func(cl *Client) {
		cl.endpoint = endpoint
	}
}

func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		secretKey:  secretKey,
		endpoint:   defaultEndpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the secret key is set.
func (c *Client) Configured() bool {
	return c.secretKey != ""
}

// Result is the outcome of a siteverify call.
type Result struct {
	OK         bool
	ErrorCodes []string
}

// Verify checks a challenge token. remoteIP may be empty.
func (c *Client) Verify(token, remoteIP string) (Result, error) {
	if !c.Configured() {
		return Result{}, fmt.Errorf("turnstile client not configured: missing secret key")
	}

	form := url.Values{}
	form.Set("secret", c.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	resp, err := c.httpClient.Post(c.endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{OK: false, ErrorCodes: []string{fmt.Sprintf("http_%d", resp.StatusCode)}}, nil
	}

	var body struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decode siteverify response: %w", err)
	}

	return Result{OK: body.Success, ErrorCodes: body.ErrorCodes}, nil
}
