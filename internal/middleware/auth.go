package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tradejournal/internal/services"
	"tradejournal/internal/utils"
)

// CookieName is the HTTP-only cookie carrying the session JWT.
const CookieName = "auth_token"

// AuthMiddleware verifies the session token and attaches the user to the
// request context. The token travels in the auth cookie; a Bearer header is
// accepted as a fallback for non-browser clients. Missing, invalid, or
// expired tokens all produce the same 401 envelope.
func AuthMiddleware(auth services.AuthService, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				unauthorized(w)
				return
			}

			claims, err := auth.ParseToken(tokenString)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := auth.GetUserByID(claims.UserID)
			if err != nil {
				if !errors.Is(err, services.ErrNotFound) {
					log.Error("user lookup failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
				}
				unauthorized(w)
				return
			}

			ctx := utils.WithCurrentUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": "Unauthorized",
	})
}
