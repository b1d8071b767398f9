package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// bearerPrefix is the expected Authorization header scheme.
const bearerPrefix = "Bearer "

// authMiddleware validates bearer tokens on protected routes.
//
// When auth is disabled in the configuration, requests pass through
// untouched. When enabled, the caller must present an HS256 token signed
// with the shared secret, either in the Authorization header or as a token
// query parameter. The query parameter exists for WebSocket upgrades, where
// browsers cannot set request headers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w, "authorization required")
			return
		}

		if err := s.validateToken(token); err != nil {
			s.logger.Debug("rejected bearer token",
				"error", err,
				"path", r.URL.Path,
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header, falling
// back to the token query parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	return r.URL.Query().Get("token")
}

// validateToken parses and verifies an HS256 token against the shared
// secret. Expiry and not-before claims are enforced when present.
func (s *Server) validateToken(tokenString string) error {
	_, err := jwt.Parse(tokenString, func(_ *jwt.Token) (any, error) {
		return []byte(s.cfg.Auth.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err
}
