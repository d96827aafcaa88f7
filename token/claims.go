// Package token provides client-side introspection of the opaque bearer
// credentials issued by the EMR backend. Nothing here verifies a signature:
// the client has no key material and never makes authorization decisions
// from a token's contents.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PeekExpiry decodes the expiry claim of a JWT access token without
// verifying it. Used only for logging and diagnostics; returns false for
// non-JWT tokens or tokens without an exp claim.
func PeekExpiry(raw string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// PeekSubject decodes the subject claim of a JWT access token without
// verifying it.
func PeekSubject(raw string) (string, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}
