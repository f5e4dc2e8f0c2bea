package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

type mockConfig struct {
	Port        int           `env:"MOCK_PORT" envDefault:"8081"`
	AppEnv      string        `env:"APP_ENV" envDefault:"development"`
	APIKey      string        `env:"HMAC_KEY"`
	Rate        string        `env:"MOCK_RATE" envDefault:"1500"`
	SettleAfter time.Duration `env:"MOCK_SETTLE_AFTER" envDefault:"5s"`
}

func main() {
	cfg, err := env.ParseAs[mockConfig]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init("mock-backend", "info", cfg.AppEnv)

	rate, err := decimal.NewFromString(cfg.Rate)
	if err != nil {
		slog.Error("invalid MOCK_RATE", "error", err)
		os.Exit(1)
	}

	b := newBackend(cfg.APIKey, rate, cfg.SettleAfter)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("mock backend started", "addr", addr, "settle_after", cfg.SettleAfter)
	if err := http.ListenAndServe(addr, b.routes()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
