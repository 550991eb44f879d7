package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/auth"
	"github.com/sumicowork/HOYODB/internal/response"
)

// 上下文中的管理员信息键
const (
	ContextAdminID       = "adminID"
	ContextAdminUsername = "adminUsername"
)

// 缺失、格式错误与过期的令牌统一返回此消息
const tokenInvalidMessage = "认证令牌无效或已过期"

// TokenValidator 令牌校验
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// JWTAuth 校验 Authorization: Bearer <token>
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, tokenInvalidMessage)
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, tokenInvalidMessage)
			return
		}

		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextAdminUsername, claims.Username)
		c.Next()
	}
}

// AdminID 从上下文读取当前管理员ID
func AdminID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextAdminID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
