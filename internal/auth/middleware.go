package auth

import (
	"context"
	"net/http"
)

type contextKey string

const (
	UserKey     contextKey = "user_id"
	IdentityKey contextKey = "identity"
)

// Middleware guards REST routes: requests without a valid token are rejected
// outright. Websocket upgrades do NOT go through this — an anonymous socket
// may still observe a room.
type Middleware struct {
	gate *JWTGate
}

func NewMiddleware(gate *JWTGate) *Middleware {
	return &Middleware{gate: gate}
}

func (am *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := TokenFromRequest(r)
		if tokenString == "" {
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}

		claims, err := am.gate.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, claims.UserID)
		ctx = context.WithValue(ctx, IdentityKey, claims.Email)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the authenticated identity, or "" if the
// request never went through the middleware.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(IdentityKey).(string)
	return identity
}

// UserIDFromContext returns the authenticated user id, or 0.
func UserIDFromContext(ctx context.Context) int {
	id, _ := ctx.Value(UserKey).(int)
	return id
}
