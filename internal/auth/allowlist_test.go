package auth

import "testing"

func TestAllowlistContains(t *testing.T) {
	a := NewAllowlist("alice@example.com, Bob@Example.com ,,")

	if !a.Contains("alice@example.com") {
		t.Error("alice not allowed")
	}
	if !a.Contains(" ALICE@example.com ") {
		t.Error("case/whitespace variant of alice not allowed")
	}
	if !a.Contains("bob@example.com") {
		t.Error("bob not allowed")
	}
	if a.Contains("mallory@example.com") {
		t.Error("mallory allowed")
	}
}

func TestAllowlistEmptyDeniesAll(t *testing.T) {
	a := NewAllowlist("")
	if a.Contains("alice@example.com") {
		t.Error("empty allowlist granted access")
	}
}
