// Package auth resolves a connection handshake to a user identity. The rest
// of the server only sees the Authenticator interface; swapping the JWT
// implementation for an SSO-backed one is a wiring change in main.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned for any handshake that cannot be mapped to
// a user. It is fatal to that connection attempt only.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Identity is the resolved owner of a connection attempt.
type Identity struct {
	UserID string
	Name   string
}

// Handshake is the subset of an upgrade request auth needs to inspect.
type Handshake struct {
	// Authorization header value, e.g. "Bearer <token>".
	Authorization string
	// TokenQuery is the ?token= query parameter, used by browser websocket
	// clients that cannot set headers on the upgrade request.
	TokenQuery string
}

// Authenticator maps a connection handshake to a user identity.
type Authenticator interface {
	Authenticate(hs Handshake) (Identity, error)
}

// JWTAuthenticator validates HS256 tokens minted by the main application.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(hs Handshake) (Identity, error) {
	tokenString := extractToken(hs)
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: invalid claims", ErrUnauthenticated)
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		// Tokens from the legacy gateway carry user_id instead of sub.
		userID, _ = claims["user_id"].(string)
	}
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	name, _ := claims["name"].(string)
	return Identity{UserID: userID, Name: name}, nil
}

func extractToken(hs Handshake) string {
	if strings.HasPrefix(hs.Authorization, "Bearer ") {
		return strings.TrimPrefix(hs.Authorization, "Bearer ")
	}
	return hs.TokenQuery
}
