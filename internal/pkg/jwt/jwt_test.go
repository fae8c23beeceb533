package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "powerplan-test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func claimsFor(role string, expires time.Duration) Claims {
	now := time.Now()
	return Claims{
		UserID: 42,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expires)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, role := range []string{"customer", "admin"} {
		t.Run(role, func(t *testing.T) {
			token, err := GenerateToken(42, role, secret, 12)
			require.NoError(t, err)

			c, err := ParseToken(token, secret)
			require.NoError(t, err)
			assert.Equal(t, int64(42), c.UserID)
			assert.Equal(t, role, c.Role)
			assert.WithinDuration(t, time.Now().Add(12*time.Hour), c.ExpiresAt.Time, time.Minute)
		})
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateToken(7, "customer", secret, 1)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		key   string
		want  error
	}{
		{"wrong secret", valid, "other-secret", ErrInvalidToken},
		{"garbage", "not.a.token", secret, ErrInvalidToken},
		{"empty", "", secret, ErrInvalidToken},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("customer", -time.Hour)), secret, ErrExpiredToken},
		{"unsigned", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claimsFor("admin", time.Hour)), secret, ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseToken(tc.token, tc.key)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, c)
		})
	}
}
