package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// credentialExpired reports whether token is a JWT whose exp claim is at or
// before now. Opaque (non-JWT) tokens and tokens without exp are never
// considered expired here; the backend remains the authority.
//
// The signature is not verified: the console cannot hold the backend's
// signing key, and this check only saves a doomed round trip.
func credentialExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
