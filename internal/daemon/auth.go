package daemon

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"adgen/internal/config"
	"adgen/internal/services"
)

// authMiddleware resolves the caller from "Authorization: Bearer <token>" and
// stores it on the request context. Websocket clients that cannot set headers
// may pass the token as the access_token query parameter. When no tokens are
// configured every request acts as the local user.
func authMiddleware(cfg *config.Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		user, ok := cfg.ResolveUser(token)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="adgen"`)
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		ctx := services.WithUserID(r.Context(), user)
		ctx = services.WithRequestID(ctx, requestID(r))
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return uuid.NewString()
}

func callerID(r *http.Request) string {
	user, _ := services.UserIDFromContext(r.Context())
	return user
}
