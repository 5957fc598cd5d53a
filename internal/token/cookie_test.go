package token

import (
	"strings"
	"testing"
	"time"
)

func TestHumanCheckCookieRoundTrip(t *testing.T) {
	c := NewCodec(testSecret)

	v, err := c.SignHumanCheckCookie()
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !c.VerifyHumanCheckCookie(v) {
		t.Error("fresh cookie did not verify")
	}
}

func TestHumanCheckCookieFormat(t *testing.T) {
	c := NewCodec(testSecret)

	v, err := c.SignHumanCheckCookie()
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		t.Fatalf("segments = %d, want 4", len(parts))
	}
	if parts[0] != "v1" {
		t.Errorf("version = %q, want v1", parts[0])
	}
	if !humanNonceRe.MatchString(parts[2]) {
		t.Errorf("nonce = %q, want 16 lowercase hex chars", parts[2])
	}
	if len(parts[3]) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(parts[3]))
	}
}

func TestHumanCheckCookieExpiry(t *testing.T) {
	now := time.Now()
	clock := now
	c := NewCodec(testSecret, WithNow(func() time.Time { return clock }))

	v, err := c.SignHumanCheckCookie()
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	clock = now.Add(HumanCheckTTL + time.Minute)
	if c.VerifyHumanCheckCookie(v) {
		t.Error("expired cookie verified")
	}
}

func TestHumanCheckCookieTampered(t *testing.T) {
	c := NewCodec(testSecret)

	v, err := c.SignHumanCheckCookie()
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if c.VerifyHumanCheckCookie(v + "0") {
		t.Error("cookie with appended byte verified")
	}
	if c.VerifyHumanCheckCookie("v2" + v[2:]) {
		t.Error("cookie with wrong version verified")
	}
	if c.VerifyHumanCheckCookie(strings.Replace(v, "v1.", "v1.9", 1)) {
		t.Error("cookie with altered expiry verified")
	}

	other := NewCodec("a-different-secret")
	if other.VerifyHumanCheckCookie(v) {
		t.Error("cookie verified under a different secret")
	}
}

func TestHumanCheckCookieGarbage(t *testing.T) {
	c := NewCodec(testSecret)

	for _, v := range []string{
		"",
		"v1",
		"v1.123.deadbeefdeadbeef",
		"v1.abc.deadbeefdeadbeef.00",
		"v1.123.zzzz.00",
	} {
		if c.VerifyHumanCheckCookie(v) {
			t.Errorf("garbage cookie %q verified", v)
		}
	}
}
