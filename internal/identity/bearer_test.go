package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func newTestAuthenticator(t *testing.T) *BearerAuthenticator {
	t.Helper()
	auth, err := NewBearerAuthenticator(testSecret, 100, time.Minute)
	require.NoError(t, err)
	t.Cleanup(auth.Close)
	return auth
}

func signToken(t *testing.T, secret, subject, email string, expiry time.Duration) string {
	t.Helper()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func requestWithAuth(header string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestBearerAuthenticator_ValidToken(t *testing.T) {
	t.Parallel()

	auth := newTestAuthenticator(t)
	token := signToken(t, testSecret, "42", "student@example.com", time.Hour)

	result := auth.Validate(requestWithAuth("Bearer " + token))
	require.True(t, result.Valid)
	require.Equal(t, "42", result.Identity.ID)
	require.Equal(t, "student@example.com", result.Identity.Email)
}

func TestBearerAuthenticator_Failures(t *testing.T) {
	t.Parallel()

	auth := newTestAuthenticator(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not a bearer scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not.a.jwt"},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other-secret", "42", "", time.Hour)},
		{name: "expired token", header: "Bearer " + signToken(t, testSecret, "42", "", -time.Minute)},
		{name: "no subject", header: "Bearer " + signToken(t, testSecret, "", "", time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := auth.Validate(requestWithAuth(tt.header))
			require.False(t, result.Valid)
			require.Equal(t, TypeBearer, result.Type)
			require.NotEmpty(t, result.Error)
		})
	}
}

func TestBearerAuthenticator_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewBearerAuthenticator("", 100, time.Minute)
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestIdentityContextRoundTrip(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)

	_, ok := FromRequest(req)
	require.False(t, ok)

	id := Identity{ID: "7", Email: "e@example.com"}
	req = req.WithContext(WithIdentity(req.Context(), id))

	got, ok := FromRequest(req)
	require.True(t, ok)
	require.Equal(t, id, got)
}
