package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatherly/chat-service/pkg/auth"
	"github.com/gatherly/chat-service/pkg/chat"
	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/db"
	"github.com/gatherly/chat-service/pkg/hub"
	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/mockfeed"
	"github.com/gatherly/chat-service/pkg/presence"
	"github.com/gatherly/chat-service/pkg/snowflake"
	"github.com/gatherly/chat-service/pkg/store"
	"github.com/gatherly/chat-service/pkg/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg := logging.L(); lg.Fatal().Err(err).Msg("failed to load configuration")
	}

	logCfg := cfg.Log
	logCfg.ServiceName = "gateway"
	logging.Init(logCfg)
	logger := logging.L()

	node, err := snowflake.NewNode(cfg.Chat.NodeID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize snowflake node")
	}

	session, err := db.NewSession(cfg.Scylla)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to ScyllaDB")
	}
	defer session.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	producer := stream.NewProducer(cfg.Kafka)
	defer producer.Close()

	wsHub := hub.NewHub()
	registry := presence.NewRegistry(rdb)
	messages := store.NewScyllaStore(session, node)

	service := chat.NewService(wsHub, messages, registry,
		chat.WithPublisher(producer),
		chat.WithHistoryLimit(cfg.Chat.HistoryLimit),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MockFeed.Enabled {
		feed := mockfeed.New(wsHub, mockfeed.WithInterval(cfg.MockFeed.Interval))
		go feed.Run(ctx)
	}

	wsHandler := NewWSHandler(wsHub, service, auth.NewVerifier(cfg.Auth.Secret), cfg.WebSocket)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:        cfg.Gateway.Addr(),
		Handler:     logging.HTTPMiddleware(logger)(mux),
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Gateway.Addr()).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gateway")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("forced shutdown")
	}
}
