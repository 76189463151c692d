package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/config"
)

// PaymentConfig points at the payment service.
type PaymentConfig struct {
	BaseURL string
	Timeout time.Duration
	// Deadline is how long a card booking may stay unpaid.
	Deadline time.Duration
}

// SendGridConfig holds email delivery settings. An empty APIKey logs emails
// instead of sending them.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// ScheduleConfig holds the cron specs (with seconds) of background jobs.
type ScheduleConfig struct {
	PaymentSweep    string
	Completion      string
	JobTimeout      time.Duration
	SweepBatchSize  int
	CompletionBatch int
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	DBConfig       config.DatabaseConfig
	JWTConfig      config.JWTConfig
	KafkaConfig    config.KafkaConfig
	RedisConfig    config.RedisConfig
	IdempotencyTTL time.Duration
	Payment        PaymentConfig
	SendGrid       SendGridConfig
	Pricing        pricing.Config
	Schedule       ScheduleConfig
	// SnapshotCutoff is when pricing snapshots started being written.
	// Bookings created before it are recomputed for display.
	SnapshotCutoff time.Time
	XOFPerUSD      decimal.Decimal
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}

	v.SetDefault("DB_NAME", "lokato_booking")
	v.SetDefault("PAYMENT_SERVICE_URL", "http://localhost:8083")
	v.SetDefault("SENDGRID_FROM_EMAIL", "no-reply@lokato.app")
	v.SetDefault("SENDGRID_FROM_NAME", "Lokato")
	v.SetDefault("VAT_RATE", pricing.DefaultVATRate.String())
	v.SetDefault("REMAINDER_POLICY", string(pricing.RemainderAbsorb))
	v.SetDefault("PAYMENT_SWEEP_CRON", "*/30 * * * * *")
	v.SetDefault("COMPLETION_CRON", "0 */5 * * * *")
	v.SetDefault("SWEEP_BATCH_SIZE", 100)
	v.SetDefault("COMPLETION_BATCH_SIZE", 200)
	v.SetDefault("XOF_PER_USD", "600")

	vat, err := decimal.NewFromString(v.GetString("VAT_RATE"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_VAT_RATE: %w", err)
	}
	remainder, err := pricing.ParseRemainderPolicy(v.GetString("REMAINDER_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_REMAINDER_POLICY: %w", err)
	}
	usd, err := decimal.NewFromString(v.GetString("XOF_PER_USD"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_XOF_PER_USD: %w", err)
	}

	var cutoff time.Time
	if raw := strings.TrimSpace(v.GetString("SNAPSHOT_CUTOFF")); raw != "" {
		cutoff, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BOOKING_SNAPSHOT_CUTOFF: %w", err)
		}
	}

	cfg := &ServiceConfig{
		Port:           config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:         config.GetAppEnv(v),
		DBConfig:       config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:      config.LoadJWTConfig(v),
		KafkaConfig:    config.LoadKafkaConfig(v),
		RedisConfig:    config.LoadRedisConfig(v),
		IdempotencyTTL: config.GetDuration(v, "IDEMPOTENCY_TTL", 24*time.Hour),
		Payment: PaymentConfig{
			BaseURL:  strings.TrimRight(v.GetString("PAYMENT_SERVICE_URL"), "/"),
			Timeout:  config.GetDuration(v, "PAYMENT_TIMEOUT", 5*time.Second),
			Deadline: config.GetDuration(v, "PAYMENT_DEADLINE", 10*time.Minute),
		},
		SendGrid: SendGridConfig{
			APIKey:    v.GetString("SENDGRID_API_KEY"),
			FromEmail: v.GetString("SENDGRID_FROM_EMAIL"),
			FromName:  v.GetString("SENDGRID_FROM_NAME"),
			Timeout:   config.GetDuration(v, "SENDGRID_TIMEOUT", 10*time.Second),
		},
		Pricing: pricing.Config{
			VATRate:   vat,
			Remainder: remainder,
			Category:  pricing.CategoryVehicle,
		},
		Schedule: ScheduleConfig{
			PaymentSweep:    v.GetString("PAYMENT_SWEEP_CRON"),
			Completion:      v.GetString("COMPLETION_CRON"),
			JobTimeout:      config.GetDuration(v, "JOB_TIMEOUT", 25*time.Second),
			SweepBatchSize:  v.GetInt("SWEEP_BATCH_SIZE"),
			CompletionBatch: v.GetInt("COMPLETION_BATCH_SIZE"),
		},
		SnapshotCutoff: cutoff,
		XOFPerUSD:      usd,
	}

	if cfg.JWTConfig.Secret == "" && cfg.AppEnv != "development" {
		return nil, fmt.Errorf("BOOKING_JWT_SECRET is required outside development")
	}
	return cfg, nil
}
