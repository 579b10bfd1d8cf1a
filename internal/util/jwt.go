package util

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the exp claim of an access token without verifying its
// signature. The client never holds the signing secret; it only needs the
// expiry to decide whether a stored session is still worth presenting.
func TokenExpiry(tokenStr string) (time.Time, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "parse token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "read exp claim")
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}
