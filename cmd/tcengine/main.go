package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tcengine/crm/internal/backup"
	"github.com/tcengine/crm/internal/database"
	"github.com/tcengine/crm/internal/email"
	"github.com/tcengine/crm/internal/logging"
	"github.com/tcengine/crm/internal/middleware"
	"github.com/tcengine/crm/internal/server"
	billingstripe "github.com/tcengine/crm/internal/stripe"
)

func main() {
	env := os.Getenv("ENV")
	production := env == "production"

	logger := logging.Setup(os.Getenv("LOG_LEVEL"), production)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CRM_DB_PATH")
	if dbPath == "" {
		dbPath = "crm.db"
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	tokenSecret := os.Getenv("AUTH_TOKEN_SECRET")
	if tokenSecret == "" {
		logger.Warn("AUTH_TOKEN_SECRET not set; all token verification will fail closed")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(os.Getenv("RESEND_API_KEY"), os.Getenv("EMAIL_FROM"))
	if !emailClient.Configured() {
		logger.Warn("email not configured; notifications will be skipped")
	}

	scheduleHour, _ := strconv.Atoi(os.Getenv("BACKUP_SCHEDULE_HOUR"))
	retentionDays, _ := strconv.Atoi(os.Getenv("BACKUP_RETENTION_DAYS"))

	cfg := server.Config{
		Stripe: billingstripe.Config{
			SecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
			TenHoursPrice:   os.Getenv("STRIPE_PRICE_ID_CONSULTING_10H"),
			FortyHoursPrice: os.Getenv("STRIPE_PRICE_ID_CONSULTING_40H"),
			OneDollarPrice:  os.Getenv("STRIPE_PRICE_ID_TEST_1DOLLAR"),
			BaseURL:         baseURL,
		},
		BaseURL:         baseURL,
		TokenSecret:     tokenSecret,
		AdminEmails:     os.Getenv("ADMIN_EMAILS"),
		ContactEmail:    os.Getenv("CONTACT_TO_EMAIL"),
		EmailClient:     emailClient,
		TurnstileSecret: os.Getenv("TURNSTILE_SECRET_KEY"),
		TurnstileBypass: !production && os.Getenv("TURNSTILE_BYPASS_LOCAL") == "true",
		SecureCookies:   production,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("BACKUP_S3_ENDPOINT"),
				Bucket:    os.Getenv("BACKUP_S3_BUCKET"),
				Region:    os.Getenv("BACKUP_S3_REGION"),
				AccessKey: os.Getenv("BACKUP_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("BACKUP_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("BACKUP_PASSPHRASE"),
			ScheduleHour:  scheduleHour,
			RetentionDays: retentionDays,
		},
	}

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           middleware.RequestLogger(logger)(srv.Router()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.BackupManager().Start(bgCtx)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("tcengine starting", "addr", ":"+port, "env", env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	srv.BackupManager().Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
