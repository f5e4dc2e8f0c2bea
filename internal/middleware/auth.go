package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kharon-pay/whatsapp-bot/internal/auth"
	"github.com/kharon-pay/whatsapp-bot/internal/handler"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

// Auth guards the operator routes. Every admitted request is logged with the
// operator and token id so admin actions can be traced to a token.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logging.FromContext(r.Context())

			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, jwt.ErrTokenExpired) {
					reason = "expired"
				}
				log.Warn("operator token rejected", "reason", reason, "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			log = log.With("operator", claims.Operator, "token_id", claims.TokenID.String())
			log.Info("operator request", "method", r.Method, "path", r.URL.Path)

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = logging.WithLogger(ctx, log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
