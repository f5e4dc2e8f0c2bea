package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kharon-pay/whatsapp-bot/internal/bot"
	"github.com/kharon-pay/whatsapp-bot/internal/config"
	"github.com/kharon-pay/whatsapp-bot/internal/gateway"
	"github.com/kharon-pay/whatsapp-bot/internal/handler"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
	"github.com/kharon-pay/whatsapp-bot/internal/messaging"
	"github.com/kharon-pay/whatsapp-bot/internal/middleware"
	"github.com/kharon-pay/whatsapp-bot/internal/reconcile"
	"github.com/kharon-pay/whatsapp-bot/internal/repository"
	"github.com/kharon-pay/whatsapp-bot/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("whatsapp-bot", cfg.LogLevel, cfg.AppEnv)

	var (
		db       *sql.DB
		audit    *repository.ReconciliationRepository
		recorder reconcile.OutcomeRecorder
	)
	if cfg.DatabaseURL != "" {
		db, err = connectDB(cfg)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := repository.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
				slog.Error("failed to migrate database", "error", err)
				os.Exit(1)
			}
		}
		audit = repository.NewReconciliationRepository(db)
		recorder = audit
	} else {
		slog.Warn("DATABASE_URL not set, reconciliation audit disabled")
	}

	backend := gateway.NewClient(gateway.Endpoints{
		CreateAccount:     cfg.CreateAccountEndpoint,
		CreateController:  cfg.CreateControllerEndpoint,
		Address:           cfg.AddressEndpoint,
		Balance:           cfg.BalanceEndpoint,
		Rate:              cfg.RateEndpoint,
		VerifyBank:        cfg.VerifyBankEndpoint,
		ListBanks:         cfg.ListBanksEndpoint,
		SaveBank:          cfg.SaveBankEndpoint,
		InitiateOfframp:   cfg.OfframpEndpoint,
		Payment:           cfg.PaymentEndpoint,
		TransactionStatus: cfg.TransactionStatusEndpoint,
	}, cfg.APIKey, cfg.BackendTimeout)

	twilio := messaging.NewTwilioClient(cfg.TwilioAPIURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber)
	replies := messaging.NewSequencer(twilio, cfg.MessageDelay)

	poller := reconcile.NewPoller(backend, replies, cfg.ReconcileInterval, logger)
	jobs := reconcile.NewManager(poller, recorder, logger)

	sessions := session.NewStore()
	dispatcher := bot.NewDispatcher(sessions, backend, replies, jobs, bot.Options{
		SettlementToken:  cfg.SettlementToken,
		BalanceAddress:   cfg.BalanceAddress,
		LocalCurrency:    cfg.LocalCurrency,
		ReconcileMaxWait: cfg.ReconcileMaxWait,
	})

	webhookHandler := handler.NewWebhookHandler(dispatcher, cfg.TwilioWhatsAppNumber, cfg.TwilioAuthToken, cfg.WebhookPublicURL)
	if cfg.WebhookPublicURL == "" {
		slog.Warn("WEBHOOK_PUBLIC_URL not set, Twilio signatures are not verified")
	}

	var pinger interface {
		PingContext(ctx context.Context) error
	}
	if db != nil {
		pinger = db
	}
	healthHandler := handler.NewHealthHandler(pinger, sessions, jobs)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", healthHandler.Root)
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)
	mux.HandleFunc("POST /webhook", webhookHandler.ReceiveMessage)

	if cfg.AdminJWTSecret != "" {
		reconHandler := handler.NewReconciliationHandler(jobs, nil)
		if audit != nil {
			reconHandler = handler.NewReconciliationHandler(jobs, audit)
		}

		requireOperator := middleware.Auth(cfg.AdminJWTSecret)
		mux.Handle("GET /admin/reconciliations", requireOperator(http.HandlerFunc(reconHandler.ListActive)))
		mux.Handle("GET /admin/reconciliations/unresolved", requireOperator(http.HandlerFunc(reconHandler.ListUnresolved)))
		mux.Handle("GET /admin/reconciliations/{reference}", requireOperator(http.HandlerFunc(reconHandler.GetOutcome)))
		mux.Handle("DELETE /admin/reconciliations/{reference}", requireOperator(http.HandlerFunc(reconHandler.Cancel)))
	}

	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.Logging(h)
	h = middleware.Tracing(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := webhookHandler.Wait(ctx); err != nil {
		slog.Error("in-flight messages abandoned", "error", err)
	}
	if err := jobs.Shutdown(ctx); err != nil {
		slog.Error("reconciliations abandoned", "error", err, "active", jobs.Active())
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}
	return repository.Connect(context.Background(), cfg.DatabaseURL, pool, 30, time.Second)
}
