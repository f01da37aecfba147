package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siramm-project/web-service/models"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Username: "rama",
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestStatic_GetAndClear(t *testing.T) {
	ctx := context.Background()
	p := NewStatic("Bearer opaque-token")

	token, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)

	require.NoError(t, p.Clear(ctx))
	_, err = p.Get(ctx)
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)
}

func TestStatic_Empty(t *testing.T) {
	_, err := NewStatic("").Get(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)
}

func TestStatic_ExpiredJWTIsDropped(t *testing.T) {
	ctx := context.Background()
	p := NewStatic(signed(t, time.Now().Add(-time.Minute)))

	_, err := p.Get(ctx)
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)

	p.now = func() time.Time { return time.Now().Add(-time.Hour) }
	_, err = p.Get(ctx)
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired, "an expired token is cleared, not revived")
}

func TestStatic_ValidJWT(t *testing.T) {
	token := signed(t, time.Now().Add(time.Hour))
	got, err := NewStatic(token).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)

	claims, ok := Inspect(token)
	require.True(t, ok)
	assert.Equal(t, "rama", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestExpired_OpaqueToken(t *testing.T) {
	assert.False(t, Expired("not-a-jwt", time.Now()))
}
