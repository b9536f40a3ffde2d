package handlers

import (
	"context"
	"net/http"
	"strings"

	"festival-system/internal/logger"
	"festival-system/internal/services"
)

type contextKey string

const claimsContextKey contextKey = "authClaims"

// claimsFromContext достаёт клеймы аутентифицированного запроса.
func claimsFromContext(ctx context.Context) (*services.AuthClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*services.AuthClaims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth пропускает только запросы с валидным bearer-токеном.
func RequireAuth(parser TokenParser, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErrorResponse(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			writeServiceError(w, log, err, "Failed to parse token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin пропускает только администраторов.
func RequireAdmin(parser TokenParser, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(parser, log, func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			writeErrorResponse(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}

// OptionalAuth прикладывает клеймы, если токен есть и валиден, но не требует их.
// Невалидный токен трактуется как его отсутствие.
func OptionalAuth(parser TokenParser, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if claims, err := parser.ParseToken(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims))
			}
		}
		next(w, r)
	}
}

// CORSMiddleware выставляет заголовки для браузерных клиентов.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Stripe-Signature")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
