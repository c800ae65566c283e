// Worker consumes registration events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, REGISTRATION_KAFKA_TOPIC, KAFKA_GROUP_ID and LOKI_URL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"identity-registration/internal/config"
	"identity-registration/internal/events/kafka"
	"identity-registration/internal/events/loki"
	"identity-registration/internal/logging"
)

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

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		logger.Fatal("worker: LOKI_URL is required")
	}

	consumer, err := kafka.NewConsumer(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
	if err != nil {
		logger.Fatal("worker: kafka consumer", zap.Error(err))
	}
	defer consumer.Close()
	lokiClient := loki.NewClient(cfg.LokiURL, "identity-registration")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker: consuming",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("loki_url", cfg.LokiURL))

	if err := consumer.Run(ctx, lokiClient.PushEventJSON); err != nil {
		logger.Error("worker: stopped with error", zap.Error(err))
		return
	}
	logger.Info("worker: stopped")
}
