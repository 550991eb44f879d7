package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/middleware"
	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/account"
)

// AuthHandler 管理员登录处理器
type AuthHandler struct {
	accountService account.AccountService
}

// NewAuthHandler 创建登录处理器实例
func NewAuthHandler(accountService account.AccountService) *AuthHandler {
	return &AuthHandler{accountService: accountService}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Description 校验用户名密码并签发JWT令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body LoginRequest true "登录请求"
// @Success 200 {object} response.Response{data=account.LoginResult} "登录成功"
// @Failure 400 {object} response.Response "用户名和密码不能为空"
// @Failure 401 {object} response.Response "用户名或密码错误"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.accountService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

// Verify 校验当前令牌
// @Summary 校验令牌
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response "令牌有效"
// @Failure 401 {object} response.Response "认证令牌无效或已过期"
// @Router /api/auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	adminID, ok := middleware.AdminID(c)
	if !ok {
		response.Unauthorized(c, "认证令牌无效或已过期")
		return
	}

	admin, err := h.accountService.Verify(c.Request.Context(), adminID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"admin": admin})
}
