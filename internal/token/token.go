// Package token implements the signed, time-bounded tokens used for admin
// magic links, admin sessions, and post-purchase intake links. Tokens are
// stateless: there is no server-side record and no revocation, so TTLs are
// kept short by purpose.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Purpose scopes a token to the single code path allowed to accept it.
type Purpose string

const (
	PurposeAdminMagicLink Purpose = "admin_magic_link"
	PurposeAdminSession   Purpose = "admin_session"
	PurposeIntakeLink     Purpose = "intake_link"
)

// Default TTLs per purpose.
const (
	MagicLinkTTL  = 15 * time.Minute
	SessionTTL    = 7 * 24 * time.Hour
	IntakeLinkTTL = 180 * 24 * time.Hour
)

// Claims holds the verified contents of a token.
type Claims struct {
	Purpose Purpose
	Expiry  time.Time
	Fields  map[string]string
}

// Codec signs and verifies tokens with an HMAC-SHA256 keyed by a shared
// server secret.
type Codec struct {
	secret string
	now    func() time.Time
}

type Option func(*Codec)

// WithNow overrides the clock, for expiry tests.
func WithNow(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{
		secret: secret,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if a signing secret is set.
func (c *Codec) Configured() bool {
	return c.secret != ""
}

var b64 = base64.RawURLEncoding

func (c *Codec) hmacSign(input string) []byte {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(input))
	return mac.Sum(nil)
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Sign builds a three-segment token: b64url(header).b64url(payload).b64url(sig).
// The payload carries the purpose under "p", an expiry under "exp", a random
// nonce under "n", and the caller's fields verbatim.
func (c *Codec) Sign(purpose Purpose, fields map[string]string, ttl time.Duration) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("token: signing secret not set")
	}

	nonce, err := newNonce()
	if err != nil {
		return "", err
	}

	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}

	payload := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		payload[k] = v
	}
	payload["p"] = string(purpose)
	payload["exp"] = c.now().Unix() + int64(ttl/time.Second)
	payload["n"] = nonce

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	encoded := b64.EncodeToString(header) + "." + b64.EncodeToString(body)
	sig := c.hmacSign(encoded)
	return encoded + "." + b64.EncodeToString(sig), nil
}

// Verify checks the signature, purpose, and expiry of a token. It never
// returns an error: any doubt means not ok.
func (c *Codec) Verify(tok string, purpose Purpose) (Claims, bool) {
	if !c.Configured() {
		return Claims{}, false
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Claims{}, false
	}

	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return Claims{}, false
	}
	expected := c.hmacSign(parts[0] + "." + parts[1])
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return Claims{}, false
	}

	body, err := b64.DecodeString(parts[1])
	if err != nil {
		return Claims{}, false
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Claims{}, false
	}

	if p, _ := payload["p"].(string); p != string(purpose) {
		return Claims{}, false
	}

	expRaw, ok := payload["exp"].(float64)
	if !ok {
		return Claims{}, false
	}
	exp := int64(expRaw)
	if exp < c.now().Unix() {
		return Claims{}, false
	}

	fields := make(map[string]string)
	for k, v := range payload {
		if k == "p" || k == "exp" || k == "n" {
			continue
		}
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}

	return Claims{
		Purpose: purpose,
		Expiry:  time.Unix(exp, 0),
		Fields:  fields,
	}, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignAdminMagicLink mints a short-lived one-time login token for an admin
// email address.
func (c *Codec) SignAdminMagicLink(email string) (string, error) {
	return c.Sign(PurposeAdminMagicLink, map[string]string{"email": normalizeEmail(email)}, MagicLinkTTL)
}

func (c *Codec) VerifyAdminMagicLink(tok string) (string, bool) {
	claims, ok := c.Verify(tok, PurposeAdminMagicLink)
	if !ok || claims.Fields["email"] == "" {
		return "", false
	}
	return claims.Fields["email"], true
}

// SignAdminSession mints the cookie value for an authenticated admin session.
func (c *Codec) SignAdminSession(email string) (string, error) {
	return c.Sign(PurposeAdminSession, map[string]string{"email": normalizeEmail(email)}, SessionTTL)
}

func (c *Codec) VerifyAdminSession(tok string) (string, bool) {
	claims, ok := c.Verify(tok, PurposeAdminSession)
	if !ok || claims.Fields["email"] == "" {
		return "", false
	}
	return claims.Fields["email"], true
}

// SignIntakeLink mints the token embedded in a customer's intake form link.
func (c *Codec) SignIntakeLink(purchaseID string) (string, error) {
	return c.Sign(PurposeIntakeLink, map[string]string{"purchaseId": purchaseID}, IntakeLinkTTL)
}

func (c *Codec) VerifyIntakeLink(tok string) (string, bool) {
	claims, ok := c.Verify(tok, PurposeIntakeLink)
	if !ok || claims.Fields["purchaseId"] == "" {
		return "", false
	}
	return claims.Fields["purchaseId"], true
}
