package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/auth"
)

// publicPaths are served without authentication.
var publicPaths = []string{"/health", "/ready", "/metrics"}

// Auth returns a middleware that attaches the operator identity to every
// request. Public paths, CORS preflights and WebSocket upgrades pass
// through unauthenticated; the push channel is read-only.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions || isWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}

			id, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Error(err),
				)
				setChallenge(w, err)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("operator authenticated",
				zap.String("operator", id.Operator),
				zap.String("method", string(id.Method)),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// isPublicPath matches the public paths and their sub-paths, so /health/live
// is public while /healthz is not.
func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func setChallenge(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", `Basic realm="catalog-admin"`)
	case errors.Is(err, auth.ErrInvalidAPIKey):
		w.Header().Set("WWW-Authenticate", "API-Key")
	default:
		w.Header().Set("WWW-Authenticate", `Basic realm="catalog-admin", API-Key`)
	}
}
