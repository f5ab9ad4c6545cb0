package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"chorequest/internal/logger"
	"chorequest/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	ClaimsContextKey ContextKey = "claims"
)

// TokenValidator checks bearer tokens
type TokenValidator interface {
	Validate(tokenString string) (*security.FamilyClaims, error)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens TokenValidator
	logger *logger.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens TokenValidator, log *logger.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		logger: log,
	}
}

// Logging records one line per request with its status and latency
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		m.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// RequireFamilyToken requires a bearer token whose family matches the
// {familyID} route parameter
func (m *Middleware) RequireFamilyToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, bearerSchema) {
			respondWithError(w, m.logger, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		claims, err := m.tokens.Validate(strings.TrimPrefix(authHeader, bearerSchema))
		if err != nil {
			respondWithError(w, m.logger, http.StatusUnauthorized, ErrUnauthorized, "token validation failed", err)
			return
		}

		familyID, err := strconv.ParseInt(chi.URLParam(r, "familyID"), 10, 64)
		if err != nil || familyID != claims.FamilyID {
			respondWithError(w, m.logger, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the token claims attached by RequireFamilyToken
func ClaimsFromContext(ctx context.Context) (*security.FamilyClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*security.FamilyClaims)
	return claims, ok
}
