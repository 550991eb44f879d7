package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/sumicowork/HOYODB/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess            ErrorCode = 0    // 成功
	ErrInternalServer     ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams      ErrorCode = 1001 // 参数错误
	ErrUnauthorized       ErrorCode = 1002 // 未授权
	ErrForbidden          ErrorCode = 1003 // 禁止访问
	ErrNotFound           ErrorCode = 1004 // 资源未找到
	ErrRouteNotFound      ErrorCode = 1005 // 接口不存在
	ErrServiceUnavailable ErrorCode = 1007 // 服务不可用

	// 文件相关错误码 (2000-2999)
	ErrFileMissing        ErrorCode = 2000 // 未上传文件
	ErrFileUploadFailed   ErrorCode = 2002 // 文件上传失败
	ErrFileReadFailed     ErrorCode = 2004 // 文件读取失败
	ErrFileSizeTooLarge   ErrorCode = 2006 // 文件大小超限
	ErrFileTypeNotAllowed ErrorCode = 2007 // 文件类型不允许
	ErrTooManyFiles       ErrorCode = 2008 // 批量上传文件过多

	// 对象存储相关错误码 (3000-3999)
	ErrStorageConfigInvalid        ErrorCode = 3001 // 存储配置无效
	ErrStorageConnectionFailed     ErrorCode = 3002 // 存储连接失败
	ErrStorageUploadFailed         ErrorCode = 3003 // 存储上传失败
	ErrStorageDeleteFailed         ErrorCode = 3005 // 存储删除失败
	ErrStorageListFailed           ErrorCode = 3006 // 存储列表获取失败
	ErrStorageProviderNotSupported ErrorCode = 3008 // 存储后端不支持
	ErrStorageQuotaFailed          ErrorCode = 3009 // 存储空间查询失败

	// 数据库相关错误码 (4000-4999)
	ErrDatabaseConnection  ErrorCode = 4000 // 数据库连接错误
	ErrDatabaseQuery       ErrorCode = 4001 // 数据库查询错误
	ErrDatabaseInsert      ErrorCode = 4002 // 数据库插入错误
	ErrDatabaseUpdate      ErrorCode = 4003 // 数据库更新错误
	ErrDatabaseDelete      ErrorCode = 4004 // 数据库删除错误
	ErrDatabaseTransaction ErrorCode = 4005 // 数据库事务错误
	ErrRecordNotFound      ErrorCode = 4006 // 记录未找到
	ErrRecordAlreadyExists ErrorCode = 4007 // 记录已存在

	// 目录业务错误码 (5000-5999)
	ErrGameNotFound         ErrorCode = 5000 // 游戏不存在
	ErrCategoryNotFound     ErrorCode = 5001 // 分类不存在
	ErrTagNotFound          ErrorCode = 5002 // 标签不存在
	ErrMaterialNotFound     ErrorCode = 5003 // 素材不存在
	ErrAdminNotFound        ErrorCode = 5004 // 管理员不存在
	ErrSlugConflict         ErrorCode = 5005 // 名称或slug重复
	ErrUsernameConflict     ErrorCode = 5006 // 用户名重复
	ErrCategoryGameMismatch ErrorCode = 5007 // 父分类不属于同一游戏
	ErrResourceInUse        ErrorCode = 5008 // 资源仍被引用
	ErrInvalidCredentials   ErrorCode = 5009 // 用户名或密码错误
	ErrTokenInvalid         ErrorCode = 5010 // 令牌无效或已过期
	ErrCredentialsRequired  ErrorCode = 5011 // 用户名和密码不能为空
)

// AppError 应用错误结构体
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息，仅用于日志
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is/As
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// HTTPStatus 错误码对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	return StatusOf(e.Code)
}

// New 创建新的应用错误，message为空时使用默认语言的翻译
func New(code ErrorCode, message string) *AppError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	appErr := New(code, message)
	appErr.OriginalError = err
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// GetAppError 从错误链中提取应用错误
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is 判断错误链中是否包含指定错误码
func Is(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// StatusOf 错误码到HTTP状态码的映射
// 校验类 400，不存在 404，重复 400，认证 401，仍被引用 409，上游依赖 500
func StatusOf(code ErrorCode) int {
	switch code {
	case ErrSuccess:
		return http.StatusOK
	case ErrInvalidParams, ErrFileMissing, ErrFileTypeNotAllowed, ErrTooManyFiles,
		ErrSlugConflict, ErrUsernameConflict, ErrCategoryGameMismatch, ErrRecordAlreadyExists,
		ErrCredentialsRequired:
		return http.StatusBadRequest
	case ErrFileSizeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrUnauthorized, ErrInvalidCredentials, ErrTokenInvalid:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound, ErrRouteNotFound, ErrRecordNotFound, ErrGameNotFound, ErrCategoryNotFound,
		ErrTagNotFound, ErrMaterialNotFound, ErrAdminNotFound:
		return http.StatusNotFound
	case ErrResourceInUse:
		return http.StatusConflict
	case ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsUpstream 是否为上游依赖错误，此类错误只向调用方返回通用消息
func IsUpstream(code ErrorCode) bool {
	return StatusOf(code) >= http.StatusInternalServerError
}

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:            "success",
	ErrInternalServer:     "internal_server_error",
	ErrInvalidParams:      "invalid_params",
	ErrUnauthorized:       "unauthorized",
	ErrForbidden:          "forbidden",
	ErrNotFound:           "not_found",
	ErrRouteNotFound:      "route_not_found",
	ErrServiceUnavailable: "service_unavailable",

	ErrFileMissing:        "file_missing",
	ErrFileUploadFailed:   "file_upload_failed",
	ErrFileReadFailed:     "file_read_failed",
	ErrFileSizeTooLarge:   "file_size_too_large",
	ErrFileTypeNotAllowed: "file_type_not_allowed",
	ErrTooManyFiles:       "too_many_files",

	ErrStorageConfigInvalid:        "storage_config_invalid",
	ErrStorageConnectionFailed:     "storage_connection_failed",
	ErrStorageUploadFailed:         "storage_upload_failed",
	ErrStorageDeleteFailed:         "storage_delete_failed",
	ErrStorageListFailed:           "storage_list_failed",
	ErrStorageProviderNotSupported: "storage_provider_not_supported",
	ErrStorageQuotaFailed:          "storage_quota_failed",

	ErrDatabaseConnection:  "database_connection",
	ErrDatabaseQuery:       "database_query",
	ErrDatabaseInsert:      "database_insert",
	ErrDatabaseUpdate:      "database_update",
	ErrDatabaseDelete:      "database_delete",
	ErrDatabaseTransaction: "database_transaction",
	ErrRecordNotFound:      "record_not_found",
	ErrRecordAlreadyExists: "record_already_exists",

	ErrGameNotFound:         "game_not_found",
	ErrCategoryNotFound:     "category_not_found",
	ErrTagNotFound:          "tag_not_found",
	ErrMaterialNotFound:     "material_not_found",
	ErrAdminNotFound:        "admin_not_found",
	ErrSlugConflict:         "slug_conflict",
	ErrUsernameConflict:     "username_conflict",
	ErrCategoryGameMismatch: "category_game_mismatch",
	ErrResourceInUse:        "resource_in_use",
	ErrInvalidCredentials:   "invalid_credentials",
	ErrTokenInvalid:         "token_invalid",
	ErrCredentialsRequired:  "credentials_required",
}

// GetErrorMessage 根据错误码获取默认语言的错误消息
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
