// Package auth 提供管理员令牌签发校验与密码哈希
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 令牌载荷，id 与 username 与前端约定一致
type Claims struct {
	AdminID  uint   `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager HS256 令牌管理器
type TokenManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenManager 创建令牌管理器
func NewTokenManager(secretKey string, tokenDuration time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		issuer:        issuer,
		now:           time.Now,
	}
}

// GenerateToken 签发令牌
func (m *TokenManager) GenerateToken(adminID uint, username string) (string, error) {
	now := m.now()
	claims := &Claims{
		AdminID:  adminID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateToken 校验签名与有效期
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.AdminID == 0 {
		return nil, fmt.Errorf("invalid token subject")
	}
	return claims, nil
}
