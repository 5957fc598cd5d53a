// Package validate holds the small input checks shared by handlers and
// stores.
package validate

import (
	"regexp"
	"strings"
)

// Small sanity check, not an RFC parser.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	e := strings.TrimSpace(email)
	if e == "" || len(e) > 254 {
		return false
	}
	return emailRe.MatchString(e)
}

// ClampStr trims s and truncates it to at most maxLen bytes.
func ClampStr(s string, maxLen int) string {
	v := strings.TrimSpace(s)
	if len(v) <= maxLen {
		return v
	}
	return v[:maxLen]
}
