package main

import (
	"errors"
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/kharon-pay/whatsapp-bot/internal/auth"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
	"github.com/kharon-pay/whatsapp-bot/internal/repository"
)

type opsConfig struct {
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`
	DatabaseURL    string `env:"DATABASE_URL"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

func loadOpsConfig() (opsConfig, error) {
	cfg, err := env.ParseAs[opsConfig]()
	if err != nil {
		return opsConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the /admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOpsConfig()
			if err != nil {
				return err
			}
			if cfg.AdminJWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}

			operator, _ := cmd.Flags().GetString("operator")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			token, err := auth.GenerateToken(operator, cfg.AdminJWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringP("operator", "o", "", "Operator name recorded in audit logs")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("operator")

	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOpsConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			logging.Init("opsctl", cfg.LogLevel, "development")

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = repository.FindMigrationsDir()
			}
			return repository.Migrate(cfg.DatabaseURL, dir)
		},
	}

	cmd.Flags().StringP("dir", "d", "", "Migrations directory (default: nearest ./migrations)")

	return cmd
}
