package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/session"
	"github.com/aristath/walletcore/internal/walleterr"
)

type contextKey string

const userIDContextKey contextKey = "wallet_user_id"

// RequireAuth authenticates every request through gate before it reaches
// the wrapped handler, storing the resolved user id in the request
// context. The wallet service trusts a user_id only after
// Gate.Authenticate succeeds.
func RequireAuth(gate session.Gate, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := gate.Authenticate(r.Context(), r)
			if err != nil {
				log.Warn().Err(err).Msg("authentication failed")
				writeError(w, walleterr.Auth("authentication required"))
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userIDFromContext retrieves the user id stashed by RequireAuth.
func userIDFromContext(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDContextKey).(uuid.UUID)
	return id, ok
}
