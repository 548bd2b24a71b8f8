package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/pricing"
)

// Config carries everything read from the environment at startup. IVA is
// validated here: a bad percent is a fatal configuration error, not a
// runtime condition.
type Config struct {
	Env string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr    string
	KafkaBrokers string

	IVAPercent    int
	ValidateStock bool

	QuoteDedupWindow time.Duration
	QuoteRateWindow  time.Duration
	QuoteRateMax     int

	TransbankBaseURL      string
	TransbankCommerceCode string
	TransbankAPIKey       string
	TransbankReturnURL    string

	StripeBaseURL       string
	StripeSecretKey     string
	StripeWebhookSecret string

	MercadoPagoBaseURL     string
	MercadoPagoAccessToken string

	KlapBaseURL  string
	KlapAPIKey   string
	KlapMockMode bool
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	godotenv.Load()

	ivaPct, err := strconv.Atoi(envOr("IVA_PCT", "19"))
	if err != nil {
		return nil, apperr.Config(fmt.Sprintf("IVA_PCT is not an integer: %v", err))
	}
	if err := pricing.ValidateIVAPercent(ivaPct); err != nil {
		return nil, err
	}

	cfg := &Config{
		Env: envOr("ENV", "development"),

		DBHost: envOr("DB_HOST", "localhost"),
		DBPort: envOr("DB_PORT", "3306"),
		DBUser: envOr("DB_USER", "root"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: envOr("DB_NAME", "covasa"),

		RedisAddr:    envOr("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: envOr("KAFKA_BROKERS", "localhost:9092"),

		IVAPercent:    ivaPct,
		ValidateStock: envOr("VALIDATE_STOCK", "false") == "true",

		QuoteDedupWindow: minutesOr("QUOTE_DEDUP_WINDOW_MIN", 30),
		QuoteRateWindow:  minutesOr("QUOTE_RATE_WINDOW_MIN", 15),
		QuoteRateMax:     intOr("QUOTE_RATE_MAX", 5),

		TransbankBaseURL:      envOr("TRANSBANK_BASE_URL", "https://webpay3gint.transbank.cl"),
		TransbankCommerceCode: os.Getenv("TRANSBANK_COMMERCE_CODE"),
		TransbankAPIKey:       os.Getenv("TRANSBANK_API_KEY"),
		TransbankReturnURL:    os.Getenv("TRANSBANK_RETURN_URL"),

		StripeBaseURL:       envOr("STRIPE_BASE_URL", "https://api.stripe.com"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		MercadoPagoBaseURL:     envOr("MP_BASE_URL", "https://api.mercadopago.com"),
		MercadoPagoAccessToken: os.Getenv("MP_ACCESS_TOKEN"),

		KlapBaseURL:  envOr("KLAP_BASE_URL", "https://api.klap.cl"),
		KlapAPIKey:   os.Getenv("KLAP_API_KEY"),
		KlapMockMode: envOr("KLAP_MOCK_MODE", "false") == "true",
	}

	if cfg.Env == "production" && cfg.KlapMockMode {
		return nil, apperr.Config("KLAP_MOCK_MODE must not be enabled in production")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func minutesOr(key string, fallback int) time.Duration {
	return time.Duration(intOr(key, fallback)) * time.Minute
}
