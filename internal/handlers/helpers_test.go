package handlers

import (
	"context"
	"net/http"

	"festival-system/internal/config"
	"festival-system/internal/logger"
	"festival-system/internal/services"

	"github.com/google/uuid"
)

var testAccountID = uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

// stubTokenParser отдаёт фиксированные клеймы для токена "good".
type stubTokenParser struct {
	claims *services.AuthClaims
	err    error
}

func (s *stubTokenParser) ParseToken(token string) (*services.AuthClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

// withClaims прикладывает клеймы к запросу, минуя middleware.
func withClaims(r *http.Request, claims *services.AuthClaims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims))
}

func memberClaims() *services.AuthClaims {
	return &services.AuthClaims{AccountID: testAccountID}
}

func adminClaims() *services.AuthClaims {
	return &services.AuthClaims{AccountID: testAccountID, IsAdmin: true}
}
