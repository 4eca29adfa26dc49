package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/db"
	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg := logging.L(); lg.Fatal().Err(err).Msg("failed to load configuration")
	}

	logCfg := cfg.Log
	logCfg.ServiceName = "activity"
	logging.Init(logCfg)
	logger := logging.L()

	session, err := db.NewSession(cfg.Scylla)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to ScyllaDB")
	}
	defer session.Close()

	consumer := NewConsumer(stream.NewReader(cfg.Kafka), session)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down activity service")
		cancel()
	}()

	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("activity consumer started")
	consumer.Consume(ctx)
}
