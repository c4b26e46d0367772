package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/muzz-match/internal/identity"
)

func TestIssueAndVerify(t *testing.T) {
	v := identity.NewVerifier("secret", "muzz")

	token, err := v.Issue(42, "user42", time.Minute)
	require.NoError(t, err)

	id, err := v.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	v := identity.NewVerifier("secret", "muzz", identity.WithClock(func() time.Time { return now }))
	token, err := v.Issue(7, "", 2*time.Minute)
	require.NoError(t, err)

	later := identity.NewVerifier("secret", "muzz",
		identity.WithClock(func() time.Time { return now.Add(time.Hour) }))
	otherKey := identity.NewVerifier("other", "muzz")
	otherIssuer := identity.NewVerifier("secret", "someone-else")

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "muzz", "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]func() error{
		"empty":        func() error { _, err := v.UserID(""); return err },
		"garbage":      func() error { _, err := v.UserID("not.a.jwt"); return err },
		"expired":      func() error { _, err := later.UserID(token); return err },
		"wrong key":    func() error { _, err := otherKey.UserID(token); return err },
		"wrong issuer": func() error { _, err := otherIssuer.UserID(token); return err },
		"no user id":   func() error { _, err := v.UserID(noID); return err },
	}
	for name, check := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, codes.Unauthenticated, status.Code(check()))
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := identity.BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	token, ok = identity.BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = identity.BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = identity.BearerToken("")
	assert.False(t, ok)
}
