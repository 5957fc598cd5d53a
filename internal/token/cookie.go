package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// HumanCheckTTL bounds how long a passed human-verification challenge is
// honored before the visitor must verify again.
const HumanCheckTTL = 8 * time.Hour

var humanNonceRe = regexp.MustCompile(`^[a-f0-9]{16}$`)

// SignHumanCheckCookie produces the fixed-format cookie value set after a
// passed CAPTCHA challenge: v1.<expiryUnixSeconds>.<hexNonce>.<hexSig>.
// It stays JSON-free so the value remains a small, plainly parseable cookie.
func (c *Codec) SignHumanCheckCookie() (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("token: signing secret not set")
	}

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(b)
	exp := c.now().Add(HumanCheckTTL).Unix()

	payload := fmt.Sprintf("v1.%d.%s", exp, nonce)
	sig := hex.EncodeToString(c.hmacSign(payload))
	return payload + "." + sig, nil
}

// VerifyHumanCheckCookie validates the signed cookie value. Any doubt means
// not ok.
func (c *Codec) VerifyHumanCheckCookie(v string) bool {
	if !c.Configured() {
		return false
	}

	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		return false
	}
	ver, expStr, nonce, sigHex := parts[0], parts[1], parts[2], parts[3]

	if ver != "v1" {
		return false
	}
	if !humanNonceRe.MatchString(nonce) {
		return false
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || exp <= 0 {
		return false
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	expected := c.hmacSign(ver + "." + expStr + "." + nonce)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return false
	}

	return exp >= c.now().Unix()
}
