// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. When empty the server keeps users in memory (development only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// Confirmable makes new users confirm their email address through a signed link.
	Confirmable bool `mapstructure:"SECURITY_CONFIRMABLE"`
	// SendRegisterEmail sends the welcome email after registration.
	SendRegisterEmail bool `mapstructure:"SECURITY_SEND_REGISTER_EMAIL"`
	// EmailSubjectRegister is the welcome email subject.
	EmailSubjectRegister string `mapstructure:"SECURITY_EMAIL_SUBJECT_REGISTER"`
	// DefaultRole is assigned when a registration names no roles.
	DefaultRole string `mapstructure:"SECURITY_DEFAULT_ROLE"`

	// ConfirmURLBase is the public URL the confirmation token is appended to (e.g. https://shop.example.com/confirm).
	ConfirmURLBase string `mapstructure:"CONFIRM_URL_BASE"`
	// ConfirmTTLRaw is the confirmation link lifetime (e.g. "120h").
	ConfirmTTLRaw string `mapstructure:"CONFIRM_TTL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; signs confirmation tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim of confirmation tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	// MailAPIURL is the transactional mail API endpoint.
	MailAPIURL string `mapstructure:"MAIL_API_URL"`
	// MailAPIKey is sent as a bearer token to the mail API.
	MailAPIKey string `mapstructure:"MAIL_API_KEY"`
	// MailSender is the From address of outgoing mail.
	MailSender string `mapstructure:"MAIL_SENDER"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. When set, events go to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic registration events are written to.
	KafkaTopic string `mapstructure:"REGISTRATION_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SECURITY_CONFIRMABLE", false)
	v.SetDefault("SECURITY_SEND_REGISTER_EMAIL", true)
	v.SetDefault("SECURITY_EMAIL_SUBJECT_REGISTER", "Welcome")
	v.SetDefault("SECURITY_DEFAULT_ROLE", "sellers")
	v.SetDefault("CONFIRM_URL_BASE", "")
	v.SetDefault("CONFIRM_TTL", "120h")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "identity-registration")
	v.SetDefault("MAIL_API_URL", "")
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_SENDER", "no-reply@localhost")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("REGISTRATION_KAFKA_TOPIC", "identity-registrations")
	v.SetDefault("KAFKA_GROUP_ID", "identity-registration-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if strings.TrimSpace(c.DefaultRole) == "" {
		return errors.New("config: SECURITY_DEFAULT_ROLE must not be empty")
	}
	if c.Confirmable {
		if c.JWTPrivateKey == "" || c.JWTPublicKey == "" {
			return errors.New("config: SECURITY_CONFIRMABLE requires JWT_PRIVATE_KEY and JWT_PUBLIC_KEY")
		}
		if c.ConfirmURLBase == "" {
			return errors.New("config: SECURITY_CONFIRMABLE requires CONFIRM_URL_BASE")
		}
	}
	if c.SendRegisterEmail && c.MailAPIURL == "" && !c.IsDevelopment() {
		return errors.New("config: SECURITY_SEND_REGISTER_EMAIL requires MAIL_API_URL outside development")
	}
	if c.DatabaseURL == "" && c.Env == "production" {
		return errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is "development".
func (c *Config) IsDevelopment() bool {
	return c != nil && c.Env == "development"
}

// RequiresConfirmation reports whether new users must confirm their email.
func (c *Config) RequiresConfirmation() bool { return c.Confirmable }

// SendsRegisterEmail reports whether the welcome email is sent after registration.
func (c *Config) SendsRegisterEmail() bool { return c.SendRegisterEmail }

// RegisterEmailSubject returns the welcome email subject, "Welcome" when unset.
func (c *Config) RegisterEmailSubject() string {
	if s := strings.TrimSpace(c.EmailSubjectRegister); s != "" {
		return s
	}
	return "Welcome"
}

// ConfirmTTL parses ConfirmTTLRaw as a time.Duration. Returns 120h if unset or invalid.
func (c *Config) ConfirmTTL() time.Duration {
	d, err := time.ParseDuration(c.ConfirmTTLRaw)
	if err != nil || d <= 0 {
		return 120 * time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means events are not sent to Kafka.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
