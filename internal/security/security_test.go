package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.FamilyID)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenRejections(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)

	forged, err := other.Issue(42)
	require.NoError(t, err)
	_, err = issuer.Validate(forged)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := issuer.Issue(42)
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2026, 1, 27, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per client")

	clock = clock.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))

	clock = clock.Add(5 * time.Minute)
	rl.evict()
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/families/1/insights", nil)
	req.RemoteAddr = "192.0.2.7:51234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", ClientIP(req))

	req.RemoteAddr = "192.0.2.8"
	assert.Equal(t, "192.0.2.8", ClientIP(req))
}
