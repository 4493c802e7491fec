package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired reports whether tok is a decodable JWT whose exp claim has
// passed, which lets hydration skip a refresh that is guaranteed to fail.
// Opaque tokens and tokens without an exp claim are never treated as expired
// locally; the server stays authoritative for those.
func tokenExpired(tok string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
