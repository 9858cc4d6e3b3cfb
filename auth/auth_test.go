package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticateBearerHeader(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub":  "user-1",
		"name": "Alice",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	identity, err := a.Authenticate(Handshake{Authorization: "Bearer " + token})
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "Alice", identity.Name)
}

func TestAuthenticateQueryToken(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{"sub": "user-2"})

	identity, err := a.Authenticate(Handshake{TokenQuery: token})
	require.NoError(t, err)
	assert.Equal(t, "user-2", identity.UserID)
}

func TestAuthenticateLegacyUserIDClaim(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{"user_id": "user-3"})

	identity, err := a.Authenticate(Handshake{TokenQuery: token})
	require.NoError(t, err)
	assert.Equal(t, "user-3", identity.UserID)
}

func TestAuthenticateRejections(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)

	tests := []struct {
		name string
		hs   Handshake
	}{
		{"missing token", Handshake{}},
		{"garbage token", Handshake{TokenQuery: "not-a-jwt"}},
		{"wrong secret", Handshake{TokenQuery: mintToken(t, "other-secret", jwt.MapClaims{"sub": "u"})}},
		{"no subject", Handshake{TokenQuery: mintToken(t, testSecret, jwt.MapClaims{"name": "x"})}},
		{"expired", Handshake{TokenQuery: mintToken(t, testSecret, jwt.MapClaims{
			"sub": "u", "exp": time.Now().Add(-time.Hour).Unix(),
		})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(tt.hs)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}
