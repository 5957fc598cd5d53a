// Package auth holds the admin email allowlist. Admin access is granted to
// exactly the addresses configured at startup; an empty allowlist means no
// admin access at all.
package auth

import "strings"

type Allowlist struct {
	emails []string
}

// NewAllowlist parses a comma-separated list of admin email addresses.
// Entries are trimmed and lowercased; empty entries are dropped.
func NewAllowlist(csv string) *Allowlist {
	var emails []string
	for _, part := range strings.Split(csv, ",") {
		e := strings.ToLower(strings.TrimSpace(part))
		if e != "" {
			emails = append(emails, e)
		}
	}
	return &Allowlist{emails: emails}
}

// Contains reports whether email is an allowed admin address.
func (a *Allowlist) Contains(email string) bool {
	if len(a.emails) == 0 {
		return false
	}
	e := strings.ToLower(strings.TrimSpace(email))
	for _, allowed := range a.emails {
		if allowed == e {
			return true
		}
	}
	return false
}
