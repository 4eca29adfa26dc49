package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gatherly/chat-service/pkg/auth"
	"github.com/gatherly/chat-service/pkg/logging"
)

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// LoginHandler mints a dev token. Production deployments front this
// with the real auth service and never expose the endpoint.
type LoginHandler struct {
	verifier *auth.Verifier
	tokenTTL time.Duration
}

func NewLoginHandler(verifier *auth.Verifier, ttl time.Duration) *LoginHandler {
	return &LoginHandler{verifier: verifier, tokenTTL: ttl}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	token, err := h.verifier.Generate(req.UserID, req.Username, h.tokenTTL)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(verifier *auth.Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		claims, err := verifier.Validate(auth.BearerToken(tokenString))
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		lg := logging.Ctx(r.Context()); lg.Debug().Str(logging.FieldUserID, claims.UserID).Msg("authenticated request")
		next.ServeHTTP(w, r)
	})
}
