package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"identity-registration/internal/audit"
	auditrepo "identity-registration/internal/audit/repository"
	"identity-registration/internal/config"
	"identity-registration/internal/db"
	"identity-registration/internal/events"
	"identity-registration/internal/events/kafka"
	eventsotel "identity-registration/internal/events/otel"
	healthhandler "identity-registration/internal/health/handler"
	"identity-registration/internal/logging"
	"identity-registration/internal/mail"
	"identity-registration/internal/registration"
	registrationhandler "identity-registration/internal/registration/handler"
	"identity-registration/internal/security"
	"identity-registration/internal/server"
	telemetryotel "identity-registration/internal/telemetry/otel"
	"identity-registration/internal/user/repository"
)

const serviceName = "identity-registration"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure, logger)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	store, conn, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	var pinger healthhandler.Pinger
	if conn != nil {
		pinger = conn
	}

	notifier, closeNotifier, err := buildNotifier(cfg, conn, providers, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	mailer, err := buildMailer(cfg, logger)
	if err != nil {
		return err
	}

	deps := registration.Deps{
		Store:       store,
		Hasher:      security.NewHasher(cfg.BcryptCost),
		Policy:      cfg,
		Notifier:    notifier,
		Mailer:      mailer,
		DefaultRole: cfg.DefaultRole,
	}
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "" && cfg.ConfirmURLBase != "" {
		issuer, err := buildIssuer(cfg)
		if err != nil {
			return err
		}
		deps.Tokens = issuer
		deps.Verifier = issuer
	}
	reg, err := registration.New(deps)
	if err != nil {
		return err
	}
	h, err := registrationhandler.NewHandler(reg, logger, providers.MeterProvider, providers.TracerProvider)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(server.Deps{Registration: h, HealthPinger: pinger, Logger: logger}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.Bool("confirmable", cfg.RequiresConfirmation()),
			zap.Bool("send_register_email", cfg.SendsRegisterEmail()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}

// openStore returns the Postgres datastore, or an in-memory one when DATABASE_URL is empty.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Datastore, *sql.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; users are kept in memory")
		return repository.NewMemoryDatastore(), nil, func() {}, nil
	}
	conn, err := db.OpenWithOptions(ctx, cfg.DatabaseURL, db.Options{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return repository.NewPostgresDatastore(conn), conn, func() { _ = conn.Close() }, nil
}

// buildNotifier fans events out to the audit trail and, when configured, to Kafka
// and OTel logs. Without a broker or collector events go to the application log.
func buildNotifier(cfg *config.Config, conn *sql.DB, providers *telemetryotel.Providers, logger *zap.Logger) (events.Notifier, func(), error) {
	var auditRepo auditrepo.Repository = auditrepo.NewMemoryRepository()
	if conn != nil {
		auditRepo = auditrepo.NewPostgresRepository(conn)
	}
	notifiers := events.Multi{audit.NewLogger(auditRepo, logger)}
	closeFn := func() {}
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		producer, err := kafka.NewProducer(brokers, cfg.KafkaTopic, logger)
		if err != nil {
			return nil, nil, err
		}
		notifiers = append(notifiers, producer)
		closeFn = func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close failed", zap.Error(err))
			}
		}
	}
	if cfg.OTLPEndpoint != "" {
		notifiers = append(notifiers, eventsotel.NewNotifier(providers.LoggerProvider))
	}
	if len(notifiers) == 1 {
		notifiers = append(notifiers, events.Log{Logger: logger})
	}
	return notifiers, closeFn, nil
}

func buildMailer(cfg *config.Config, logger *zap.Logger) (registration.Mailer, error) {
	if !cfg.SendsRegisterEmail() {
		return nil, nil
	}
	templates, err := mail.LoadTemplates()
	if err != nil {
		return nil, err
	}
	if cfg.MailAPIURL == "" {
		return mail.LogMailer{Logger: logger, Templates: templates}, nil
	}
	return mail.NewAPIClient(cfg.MailAPIKey, cfg.MailAPIURL, cfg.MailSender, templates), nil
}

func buildIssuer(cfg *config.Config) (*security.ConfirmationIssuer, error) {
	priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewConfirmationIssuer(priv, pub, cfg.JWTIssuer, cfg.ConfirmURLBase, cfg.ConfirmTTL())
}
