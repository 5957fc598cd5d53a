package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tcengine/crm/internal/auth"
	"github.com/tcengine/crm/internal/token"
)

func newAuthHandler(mailer *fakeMailer) *AuthHandler {
	codec := token.NewCodec(testSecret)
	allowlist := auth.NewAllowlist("admin@tcengine.test, other@tcengine.test")
	return NewAuthHandler(codec, allowlist, mailer, "https://tcengine.test", true, testLogger())
}

func TestRequestMagicLinkSendsLink(t *testing.T) {
	mailer := newFakeMailer()
	h := newAuthHandler(mailer)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/admin/request",
		strings.NewReader(`{"email":"Admin@TCEngine.test","next":"/admin/customers"}`))
	rec := httptest.NewRecorder()
	h.RequestMagicLink(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if mailer.count() != 1 {
		t.Fatalf("sent %d emails, want 1", mailer.count())
	}

	mail := mailer.last()
	if mail.To != "admin@tcengine.test" {
		t.Errorf("to = %q", mail.To)
	}
	if !strings.Contains(mail.Text, "https://tcengine.test/api/auth/admin/callback?token=") {
		t.Errorf("mail text missing callback link: %q", mail.Text)
	}
	if !strings.Contains(mail.Text, "next="+url.QueryEscape("/admin/customers")) {
		t.Error("mail text missing next param")
	}
}

func TestRequestMagicLinkNotAllowlisted(t *testing.T) {
	mailer := newFakeMailer()
	h := newAuthHandler(mailer)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/admin/request",
		strings.NewReader(`{"email":"stranger@example.com"}`))
	rec := httptest.NewRecorder()
	h.RequestMagicLink(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if mailer.count() != 0 {
		t.Error("no email for non-allowlisted address")
	}
}

func TestRequestMagicLinkInvalidEmail(t *testing.T) {
	h := newAuthHandler(newFakeMailer())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/admin/request",
		strings.NewReader(`{"email":"nope"}`))
	rec := httptest.NewRecorder()
	h.RequestMagicLink(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCallbackEstablishesSession(t *testing.T) {
	h := newAuthHandler(newFakeMailer())
	codec := token.NewCodec(testSecret)

	tok, err := codec.SignAdminMagicLink("admin@tcengine.test")
	if err != nil {
		t.Fatalf("sign magic link: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/auth/admin/callback?token="+url.QueryEscape(tok)+"&next=%2Fadmin", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://tcengine.test/admin" {
		t.Errorf("redirect = %q", loc)
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == adminSessionCookie {
			session = c
		}
	}
	if session == nil {
		t.Fatal("session cookie not set")
	}
	if !session.HttpOnly || !session.Secure {
		t.Error("session cookie must be HttpOnly and Secure")
	}

	email, ok := codec.VerifyAdminSession(session.Value)
	if !ok || email != "admin@tcengine.test" {
		t.Errorf("session verifies to %q, %v", email, ok)
	}
}

func TestCallbackBadTokenRedirectsToLogin(t *testing.T) {
	h := newAuthHandler(newFakeMailer())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/admin/callback?token=garbage", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "https://tcengine.test/login") {
		t.Errorf("redirect = %q, want login page", loc)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no cookie on failed callback")
	}
}

func TestCallbackOffsiteNextRewritten(t *testing.T) {
	h := newAuthHandler(newFakeMailer())
	codec := token.NewCodec(testSecret)
	tok, _ := codec.SignAdminMagicLink("admin@tcengine.test")

	req := httptest.NewRequest(http.MethodGet,
		"/api/auth/admin/callback?token="+url.QueryEscape(tok)+"&next="+url.QueryEscape("https://evil.example.com/"), nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if loc := rec.Header().Get("Location"); loc != "https://tcengine.test/admin" {
		t.Errorf("redirect = %q, want safe default", loc)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newAuthHandler(newFakeMailer())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/admin/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == adminSessionCookie {
			session = c
		}
	}
	if session == nil {
		t.Fatal("clearing cookie not set")
	}
	if session.MaxAge != -1 || session.Value != "" {
		t.Errorf("cookie = %q maxage %d, want cleared", session.Value, session.MaxAge)
	}
}
