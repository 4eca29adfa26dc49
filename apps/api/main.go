package main

import (
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/gatherly/chat-service/pkg/auth"
	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/db"
	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/snowflake"
	"github.com/gatherly/chat-service/pkg/store"
)

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg := logging.L(); lg.Fatal().Err(err).Msg("failed to load configuration")
	}

	logCfg := cfg.Log
	logCfg.ServiceName = "api"
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

	verifier := auth.NewVerifier(cfg.Auth.Secret)
	messages := store.NewScyllaStore(session, node)

	mux := http.NewServeMux()

	// Public endpoints
	mux.Handle("/login", NewLoginHandler(verifier, cfg.Auth.TokenTTL))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Protected endpoints
	mux.Handle("/history", AuthMiddleware(verifier, NewHistoryHandler(messages, cfg.Chat.HistoryLimit)))
	mux.Handle("/events/", AuthMiddleware(verifier, NewChattersHandler(rdb)))

	handler := logging.HTTPMiddleware(logger)(CORSMiddleware(mux))

	logger.Info().Str("addr", cfg.API.Addr()).Msg("api listening")
	if err := http.ListenAndServe(cfg.API.Addr(), handler); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
