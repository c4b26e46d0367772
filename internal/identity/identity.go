// Package identity turns bearer tokens into authenticated user ids.
//
// Credentials are issued elsewhere; this package only verifies HS256
// tokens carrying the numeric user id in the "id" claim. Issue exists for
// seeding and tests.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

// Claims is the access token payload.
type Claims struct {
	ID       uint64 `json:"id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type Option func(*Verifier)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(secret, issuer string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// UserID validates token and returns the user it was issued for. Every
// failure is an Unauthenticated status error.
func (v *Verifier) UserID(token string) (uint64, error) {
	if token == "" {
		return 0, svcErr.Unauthenticated("missing token")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, svcErr.Unauthenticated("token expired")
	case err != nil:
		return 0, svcErr.Unauthenticated("invalid token")
	case claims.ID == 0:
		return 0, svcErr.Unauthenticated("token has no user id")
	}
	return claims.ID, nil
}

// Issue signs an access token for userID valid for ttl.
func (v *Verifier) Issue(userID uint64, username string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		ID:       userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an "Authorization: Bearer x" value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
