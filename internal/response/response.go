// Package response 统一的JSON响应格式 {success, data, message, pagination}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/sumicowork/HOYODB/internal/errors"
	"github.com/sumicowork/HOYODB/internal/i18n"
	"github.com/sumicowork/HOYODB/internal/logger"
)

// Response 统一返回值结构体
type Response struct {
	// 是否成功
	Success bool `json:"success"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 提示或错误消息
	Message string `json:"message,omitempty"`
	// 分页信息，仅列表接口返回
	Pagination interface{} `json:"pagination,omitempty"`
}

// Success 200 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Message: message})
}

// Created 201 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, pagination interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: list, Pagination: pagination})
}

// Error 指定状态码的错误响应
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message})
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401错误响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// NotFound 404错误响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Fail 根据错误类型返回响应
// 上游依赖错误只返回按 Accept-Language 翻译的通用消息，细节写入日志
func Fail(c *gin.Context, err error) {
	lang := i18n.GetInstance().ResolveLanguage(c.GetHeader("Accept-Language"))

	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		logError(c, apperrors.ErrInternalServer, err)
		Error(c, http.StatusInternalServerError, apperrors.GetErrorMessageWithLang(apperrors.ErrInternalServer, lang))
		return
	}

	status := appErr.HTTPStatus()
	if apperrors.IsUpstream(appErr.Code) {
		logError(c, appErr.Code, appErr)
		Error(c, status, apperrors.GetErrorMessageWithLang(appErr.Code, lang))
		return
	}

	message := appErr.Message
	if message == "" || message == apperrors.GetErrorMessage(appErr.Code) {
		message = apperrors.GetErrorMessageWithLang(appErr.Code, lang)
	}
	Error(c, status, message)
}

func logError(c *gin.Context, code apperrors.ErrorCode, err error) {
	logger.WithFields(logrus.Fields{
		"code":       code,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("request_id"),
	}).WithError(err).Error("请求处理失败")
}
