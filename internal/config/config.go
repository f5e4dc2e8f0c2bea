package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"6500"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	TwilioAccountSID     string `env:"TWILIO_ACCOUNT_SID,required"`
	TwilioAuthToken      string `env:"TWILIO_AUTH_TOKEN,required"`
	TwilioWhatsAppNumber string `env:"TWILIO_WHATSAPP_NUMBER,required"`
	TwilioAPIURL         string `env:"TWILIO_API_URL,required"`
	WebhookPublicURL     string `env:"WEBHOOK_PUBLIC_URL"`

	APIKey                    string        `env:"HMAC_KEY,required"`
	BackendTimeout            time.Duration `env:"BACKEND_TIMEOUT" envDefault:"130s"`
	CreateAccountEndpoint     string        `env:"SERVER_CREATE_ENDPOINT,required"`
	CreateControllerEndpoint  string        `env:"SERVER_CREATE_CONTROLLER_ENDPOINT,required"`
	AddressEndpoint           string        `env:"SERVER_GET_ADDRESS_ENDPOINT,required"`
	BalanceEndpoint           string        `env:"SERVER_BALANCE_ENDPOINT,required"`
	RateEndpoint              string        `env:"SERVER_RATE_ENDPOINT,required"`
	VerifyBankEndpoint        string        `env:"SERVER_BANK_ACCOUNT_VERIFY_ENDPOINT,required"`
	ListBanksEndpoint         string        `env:"SERVER_BANK_ACCOUNT_GETTER_ENDPOINT,required"`
	SaveBankEndpoint          string        `env:"SERVER_BANK_DETAILS_CONFIRM_ENDPOINT,required"`
	OfframpEndpoint           string        `env:"SERVER_OFFRAMP_INIT_ENDPOINT,required"`
	PaymentEndpoint           string        `env:"SERVER_PAYMENT_ENDPOINT,required"`
	TransactionStatusEndpoint string        `env:"TRANSACTION_STATUS_ENDPOINT,required"`

	SettlementToken string `env:"SETTLEMENT_TOKEN,required"`
	BalanceAddress  string `env:"BALANCE_ADDRESS,required"`
	LocalCurrency   string `env:"LOCAL_CURRENCY" envDefault:"NGN"`

	MessageDelay      time.Duration `env:"MESSAGE_DELAY" envDefault:"1s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"2s"`
	ReconcileMaxWait  time.Duration `env:"RECONCILE_MAX_WAIT" envDefault:"30m"`

	DatabaseURL        string `env:"DATABASE_URL"`
	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"5"`
	DBMaxIdleConns     int    `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
	DBConnMaxLifetimeS int    `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int    `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	AutoMigrate        bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	MigrationsDir      string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	// Empty disables the /admin routes.
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("config.Load: RECONCILE_INTERVAL must be positive")
	}
	if cfg.AdminJWTSecret != "" && len(cfg.AdminJWTSecret) < 32 {
		return nil, fmt.Errorf("config.Load: ADMIN_JWT_SECRET must be at least 32 bytes")
	}
	return &cfg, nil
}
