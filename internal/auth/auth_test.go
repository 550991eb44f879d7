package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour, "hoyodb")

	t.Run("签发并校验", func(t *testing.T) {
		token, err := manager.GenerateToken(7, "admin")
		require.NoError(t, err)

		claims, err := manager.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.AdminID)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, "hoyodb", claims.Issuer)
	})

	t.Run("过期令牌", func(t *testing.T) {
		expired := NewTokenManager("test-secret", time.Hour, "hoyodb")
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := expired.GenerateToken(1, "admin")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("密钥不一致", func(t *testing.T) {
		other := NewTokenManager("another-secret", time.Hour, "hoyodb")
		token, err := other.GenerateToken(1, "admin")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := manager.ValidateToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("拒绝非HS256算法", func(t *testing.T) {
		claims := &Claims{
			AdminID:  1,
			Username: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)
	assert.True(t, CheckPassword(hash, "admin123"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "admin123"))
}
