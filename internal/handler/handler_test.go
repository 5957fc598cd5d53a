package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/tcengine/crm/internal/database"
)

const testSecret = "handler-test-secret"

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMail struct {
	To      string
	Subject string
	Text    string
	ReplyTo string
}

// fakeMailer records outbound mail for assertions.
type fakeMailer struct {
	mu         sync.Mutex
	sent       []sentMail
	configured bool
	err        error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{configured: true}
}

func (f *fakeMailer) Configured() bool {
	return f.configured
}

func (f *fakeMailer) Send(to, subject, text, replyTo string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Text: text, ReplyTo: replyTo})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}
