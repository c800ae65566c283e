package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// setEnv clears the environment and applies env for the duration of the test.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	saved := os.Environ()
	os.Clearenv()
	t.Cleanup(func() {
		os.Clearenv()
		for _, kv := range saved {
			if k, v, ok := strings.Cut(kv, "="); ok {
				os.Setenv(k, v)
			}
		}
	})
	for k, v := range env {
		os.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"APP_ENV": "development"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.RequiresConfirmation() {
		t.Error("confirmation should be off by default")
	}
	if !cfg.SendsRegisterEmail() {
		t.Error("register email should be on by default")
	}
	if cfg.RegisterEmailSubject() != "Welcome" {
		t.Errorf("RegisterEmailSubject = %q, want Welcome", cfg.RegisterEmailSubject())
	}
	if cfg.DefaultRole != "sellers" {
		t.Errorf("DefaultRole = %q, want sellers", cfg.DefaultRole)
	}
	if cfg.ConfirmTTL() != 120*time.Hour {
		t.Errorf("ConfirmTTL = %v, want 120h", cfg.ConfirmTTL())
	}
	if cfg.KafkaTopic != "identity-registrations" {
		t.Errorf("KafkaTopic = %q, want identity-registrations", cfg.KafkaTopic)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setEnv(t, map[string]string{
		"HTTP_ADDR":                       ":9090",
		"BCRYPT_COST":                     "10",
		"SECURITY_SEND_REGISTER_EMAIL":    "false",
		"SECURITY_EMAIL_SUBJECT_REGISTER": "Hello there",
		"CONFIRM_TTL":                     "24h",
		"KAFKA_BROKERS":                   "a:9092, b:9092,,",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.SendsRegisterEmail() {
		t.Error("SendsRegisterEmail should be false")
	}
	if cfg.RegisterEmailSubject() != "Hello there" {
		t.Errorf("RegisterEmailSubject = %q", cfg.RegisterEmailSubject())
	}
	if cfg.ConfirmTTL() != 24*time.Hour {
		t.Errorf("ConfirmTTL = %v, want 24h", cfg.ConfirmTTL())
	}
	if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, []string{"a:9092", "b:9092"}) {
		t.Errorf("KafkaBrokersList = %v", got)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bcrypt cost too high",
			env:     map[string]string{"APP_ENV": "development", "BCRYPT_COST": "40"},
			wantErr: "BCRYPT_COST",
		},
		{
			name:    "confirmable without keys",
			env:     map[string]string{"APP_ENV": "development", "SECURITY_CONFIRMABLE": "true", "CONFIRM_URL_BASE": "https://x/confirm"},
			wantErr: "JWT_PRIVATE_KEY",
		},
		{
			name:    "confirmable without url base",
			env:     map[string]string{"APP_ENV": "development", "SECURITY_CONFIRMABLE": "true", "JWT_PRIVATE_KEY": "k", "JWT_PUBLIC_KEY": "p"},
			wantErr: "CONFIRM_URL_BASE",
		},
		{
			name:    "register email without mail api outside development",
			env:     map[string]string{"APP_ENV": "staging"},
			wantErr: "MAIL_API_URL",
		},
		{
			name:    "production without database",
			env:     map[string]string{"APP_ENV": "production", "MAIL_API_URL": "https://mail"},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "empty default role",
			env:     map[string]string{"APP_ENV": "development", "SECURITY_DEFAULT_ROLE": " "},
			wantErr: "SECURITY_DEFAULT_ROLE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestConfirmTTL_InvalidFallsBack(t *testing.T) {
	for _, raw := range []string{"", "soon", "-1h"} {
		c := &Config{ConfirmTTLRaw: raw}
		if got := c.ConfirmTTL(); got != 120*time.Hour {
			t.Errorf("ConfirmTTL(%q) = %v, want 120h", raw, got)
		}
	}
}

func TestKafkaBrokersList_Nil(t *testing.T) {
	var c *Config
	if c.KafkaBrokersList() != nil {
		t.Error("nil config should have no brokers")
	}
	if (&Config{}).KafkaBrokersList() != nil {
		t.Error("empty brokers should be nil")
	}
}
