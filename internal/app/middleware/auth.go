package middleware

import (
	"net/http"
	"strings"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/handler"
	"camptrade/internal/app/logger"
	"camptrade/internal/app/session"
)

// Auth resolves the bearer token into a caller stored in the request context.
func Auth(sessions session.Reader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.Get(r.Context(), "Middleware.Auth")

			reqHeader := r.Header.Get("Authorization")
			token := strings.TrimPrefix(reqHeader, "Bearer ")
			if token == reqHeader || token == "" {
				log.Debug().Msg("Missing bearer token")
				handler.WriteError(w, apperr.ErrUnauthenticated, http.StatusUnauthorized)
				return
			}

			c, err := sessions.Read(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				handler.WriteError(w, apperr.ErrUnauthenticated, http.StatusUnauthorized)
				return
			}

			log.Debug().Str("user_id", c.ID).Msg("Caller authenticated")
			next.ServeHTTP(w, r.WithContext(handler.WithCaller(r.Context(), c)))
		})
	}
}
