package handler

import (
	"encoding/json"
	"net/http"
)

// Mailer is the outbound email surface handlers depend on. *email.Client
// satisfies it; tests substitute a fake.
type Mailer interface {
	Configured() bool
	Send(to, subject, text, replyTo string) error
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": code})
}
