package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tcengine/crm/internal/database"
	"github.com/tcengine/crm/internal/email"
	"github.com/tcengine/crm/internal/token"
)

func testServer(t *testing.T, bypass bool) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, Config{
		BaseURL:         "https://tcengine.test",
		TokenSecret:     "server-test-secret",
		AdminEmails:     "admin@tcengine.test",
		ContactEmail:    "owner@tcengine.test",
		EmailClient:     email.NewClient("", ""),
		TurnstileBypass: bypass,
	}, logger)
}

func TestHealthEndpoint(t *testing.T) {
	router := testServer(t, false).Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGatedRoutesRequireHumanCheck(t *testing.T) {
	router := testServer(t, false).Router()

	for _, route := range []string{"/api/leads/submit", "/api/billing/create-checkout-session"} {
		req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403 without human-check cookie", route, rec.Code)
		}
	}
}

func TestGatedRoutesPassWithCookie(t *testing.T) {
	srv := testServer(t, false)
	router := srv.Router()

	codec := token.NewCodec("server-test-secret")
	value, err := codec.SignHumanCheckCookie()
	if err != nil {
		t.Fatalf("sign cookie: %v", err)
	}

	// Past the gate, the lead handler rejects the empty body itself.
	req := httptest.NewRequest(http.MethodPost, "/api/leads/submit", strings.NewReader(`{}`))
	req.AddCookie(&http.Cookie{Name: "tc_turnstile_ok", Value: value})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 from the handler", rec.Code)
	}
}

func TestBypassSkipsHumanCheck(t *testing.T) {
	router := testServer(t, true).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/leads/submit", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 from the handler when bypassed", rec.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	router := testServer(t, false).Router()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/customers"},
		{http.MethodGet, "/api/admin/customers/c_123"},
		{http.MethodGet, "/api/admin/backup"},
		{http.MethodPost, "/api/admin/backup/run"},
		{http.MethodGet, "/api/admin/stripe/one-dollar-test"},
	}
	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", route.method, route.path, rec.Code)
		}
	}
}

func TestAdminRouteWithSession(t *testing.T) {
	router := testServer(t, false).Router()

	codec := token.NewCodec("server-test-secret")
	tok, err := codec.SignAdminSession("admin@tcengine.test")
	if err != nil {
		t.Fatalf("sign session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/customers", nil)
	req.AddCookie(&http.Cookie{Name: "tc_admin_session", Value: tok})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookRouteRejectsUnsigned(t *testing.T) {
	router := testServer(t, false).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
