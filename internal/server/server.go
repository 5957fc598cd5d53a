package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tcengine/crm/internal/auth"
	"github.com/tcengine/crm/internal/backup"
	"github.com/tcengine/crm/internal/email"
	"github.com/tcengine/crm/internal/handler"
	"github.com/tcengine/crm/internal/middleware"
	"github.com/tcengine/crm/internal/store"
	billingstripe "github.com/tcengine/crm/internal/stripe"
	"github.com/tcengine/crm/internal/token"
	"github.com/tcengine/crm/internal/turnstile"
)

type Config struct {
	Stripe          billingstripe.Config
	BaseURL         string
	TokenSecret     string
	AdminEmails     string
	ContactEmail    string
	EmailClient     *email.Client
	TurnstileSecret string
	TurnstileBypass bool
	SecureCookies   bool
	Backup          backup.Config
}

type Server struct {
	db            *sql.DB
	codec         *token.Codec
	allowlist     *auth.Allowlist
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	humanBypass   bool

	turnstileH *handler.TurnstileHandler
	leadH      *handler.LeadHandler
	checkoutH  *handler.CheckoutHandler
	webhookH   *handler.WebhookHandler
	intakeH    *handler.IntakeHandler
	authH      *handler.AuthHandler
	adminH     *handler.AdminHandler
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	customerStore := store.NewCustomerStore(db)
	leadStore := store.NewLeadStore(db)
	purchaseStore := store.NewPurchaseStore(db)
	eventStore := store.NewWebhookEventStore(db)
	intakeStore := store.NewIntakeStore(db)

	codec := token.NewCodec(cfg.TokenSecret)
	allowlist := auth.NewAllowlist(cfg.AdminEmails)

	stripeClient := billingstripe.NewClient(cfg.Stripe)
	turnstileClient := turnstile.NewClient(cfg.TurnstileSecret)
	backupManager := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		codec:         codec,
		allowlist:     allowlist,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupManager,
		humanBypass:   cfg.TurnstileBypass,

		turnstileH: handler.NewTurnstileHandler(turnstileClient, codec, cfg.TurnstileBypass, cfg.SecureCookies,
			logger.With("component", "turnstile")),
		leadH: handler.NewLeadHandler(customerStore, leadStore, cfg.EmailClient, cfg.ContactEmail,
			logger.With("component", "leads")),
		checkoutH: handler.NewCheckoutHandler(stripeClient, customerStore, leadStore, purchaseStore,
			cfg.EmailClient, cfg.ContactEmail, cfg.BaseURL, logger.With("component", "checkout")),
		webhookH: handler.NewWebhookHandler(stripeClient, customerStore, purchaseStore, eventStore,
			cfg.EmailClient, codec, cfg.ContactEmail, cfg.BaseURL, logger.With("component", "webhook")),
		intakeH: handler.NewIntakeHandler(codec, purchaseStore, intakeStore,
			logger.With("component", "intake")),
		authH: handler.NewAuthHandler(codec, allowlist, cfg.EmailClient, cfg.BaseURL, cfg.SecureCookies,
			logger.With("component", "auth")),
		adminH: handler.NewAdminHandler(customerStore, leadStore, purchaseStore, intakeStore, backupManager,
			logger.With("component", "admin")),
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager so main can run its schedule.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	rateLimited := middleware.RateLimit(s.rateLimiter, 10, time.Minute)
	humanGated := middleware.RequireHumanCheck(s.codec, s.humanBypass)
	adminOnly := middleware.RequireAdmin(s.codec, s.allowlist)

	gated := func(h http.HandlerFunc) http.Handler {
		return rateLimited(humanGated(h))
	}

	mux.HandleFunc("GET /health", s.healthCheck)

	// CAPTCHA verification is itself rate-limited but obviously not gated.
	mux.Handle("POST /api/security/turnstile/verify", rateLimited(http.HandlerFunc(s.turnstileH.Verify)))

	// Abuse-prone public endpoints sit behind the verified-human cookie.
	mux.Handle("POST /api/leads/submit", gated(s.leadH.Submit))
	mux.Handle("POST /api/billing/create-checkout-session", gated(s.checkoutH.CreateCheckoutSession))

	// The intake-link token is its own credential.
	mux.HandleFunc("POST /api/intake/submit", s.intakeH.Submit)

	// Stripe authenticates webhooks with its own signature.
	mux.HandleFunc("POST /api/stripe/webhook", s.webhookH.HandleStripeWebhook)

	// Browser redirect back from Stripe checkout.
	mux.HandleFunc("GET /api/billing/success", s.checkoutH.Success)

	// Admin magic-link auth.
	mux.Handle("POST /api/auth/admin/request", rateLimited(http.HandlerFunc(s.authH.RequestMagicLink)))
	mux.HandleFunc("GET /api/auth/admin/callback", s.authH.Callback)
	mux.HandleFunc("GET /api/auth/admin/logout", s.authH.Logout)

	// Admin API.
	mux.Handle("GET /api/admin/customers", adminOnly(http.HandlerFunc(s.adminH.Customers)))
	mux.Handle("GET /api/admin/customers/{id}", adminOnly(http.HandlerFunc(s.adminH.CustomerDetail)))
	mux.Handle("GET /api/admin/backup", adminOnly(http.HandlerFunc(s.adminH.BackupStatus)))
	mux.Handle("POST /api/admin/backup/run", adminOnly(http.HandlerFunc(s.adminH.BackupRun)))
	mux.Handle("GET /api/admin/stripe/one-dollar-test", adminOnly(http.HandlerFunc(s.checkoutH.OneDollarTest)))

	return mux
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
