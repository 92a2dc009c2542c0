package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DB_URL"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDatabase string `envconfig:"MONGO_DB" default:"salon"`

	PaymentProvider    string `envconfig:"PAYMENT_PROVIDER" default:"paystack"`
	PaystackSecretKey  string `envconfig:"PAYSTACK_SECRET_KEY"`
	PaystackPublicKey  string `envconfig:"PAYSTACK_PUBLIC_KEY"`
	PaystackBaseURL    string `envconfig:"PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	PaymentCallbackURL string `envconfig:"PAYMENT_CALLBACK_URL"`
	OmisePublicKey     string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey     string `envconfig:"OMISE_SECRET_KEY"`
	OmiseWebhookSecret string `envconfig:"OMISE_WEBHOOK_SECRET"`
	OmiseSourceType    string `envconfig:"OMISE_SOURCE_TYPE" default:"promptpay"`
	Currency           string `envconfig:"CURRENCY" default:"ZAR"`
	DepositPercent     int    `envconfig:"DEPOSIT_PERCENT" default:"45"`

	TwilioAccountSID     string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber    string `envconfig:"TWILIO_PHONE_NUMBER"`
	TwilioWhatsAppNumber string `envconfig:"TWILIO_WHATSAPP_NUMBER"`
	AdminWhatsAppNumber  string `envconfig:"ADMIN_WHATSAPP_NUMBER"`

	SalonName        string `envconfig:"SALON_NAME" default:"Salon"`
	SalonTimezone    string `envconfig:"SALON_TIMEZONE" default:"Africa/Johannesburg"`
	PhoneCountryCode string `envconfig:"PHONE_COUNTRY_CODE" default:"27"`

	ReminderInterval  time.Duration `envconfig:"REMINDER_INTERVAL" default:"5m"`
	ReminderBatchSize int           `envconfig:"REMINDER_BATCH_SIZE" default:"100"`

	JWTSecret      string `envconfig:"JWT_SECRET"`
	JWTExpiryHours int    `envconfig:"JWT_EXPIRY_HOURS" default:"24"`

	MessagingAPIKey string   `envconfig:"MESSAGING_API_KEY"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"salon.events"`

	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	// Location is resolved from SalonTimezone by Load.
	Location *time.Location `ignored:"true"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	loc, err := time.LoadLocation(cfg.SalonTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SALON_TIMEZONE %q: %w", cfg.SalonTimezone, err)
	}
	cfg.Location = loc

	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.PaymentProvider = strings.ToLower(cfg.PaymentProvider)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DB_URL is required for the postgres driver")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.PaymentProvider {
	case "paystack", "omise":
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}

	if c.DepositPercent <= 0 || c.DepositPercent > 100 {
		return fmt.Errorf("DEPOSIT_PERCENT must be between 1 and 100")
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	return nil
}

// PublicKey is the browser-safe key for the configured payment provider.
func (c *Config) PublicKey() string {
	if c.PaymentProvider == "omise" {
		return c.OmisePublicKey
	}
	return c.PaystackPublicKey
}
