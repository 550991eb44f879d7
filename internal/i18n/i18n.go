// Package i18n 提供国际化支持
// 负责错误消息的多语言翻译，默认中文
package i18n

import (
	"strings"
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/sirupsen/logrus"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包
	translations = map[string]map[string]string{
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"unauthorized":          "认证令牌无效或已过期",
			"forbidden":             "禁止访问",
			"not_found":             "资源未找到",
			"route_not_found":       "接口不存在",
			"service_unavailable":   "服务不可用",

			"file_missing":          "请选择要上传的文件",
			"file_upload_failed":    "文件上传失败",
			"file_read_failed":      "文件读取失败",
			"file_size_too_large":   "文件大小超过限制",
			"file_type_not_allowed": "不支持的文件类型",
			"too_many_files":        "一次上传的文件数量过多",

			"storage_config_invalid":         "存储配置无效",
			"storage_connection_failed":      "存储服务连接失败",
			"storage_upload_failed":          "上传文件到存储失败",
			"storage_delete_failed":          "删除存储文件失败",
			"storage_list_failed":            "获取文件列表失败",
			"storage_provider_not_supported": "不支持的存储后端",
			"storage_quota_failed":           "获取存储空间信息失败",

			"database_connection":   "数据库连接错误",
			"database_query":        "数据库查询错误",
			"database_insert":       "数据库插入错误",
			"database_update":       "数据库更新错误",
			"database_delete":       "数据库删除错误",
			"database_transaction":  "数据库事务错误",
			"record_not_found":      "记录未找到",
			"record_already_exists": "记录已存在",

			"game_not_found":         "游戏不存在",
			"category_not_found":     "分类不存在",
			"tag_not_found":          "标签不存在",
			"material_not_found":     "素材不存在",
			"admin_not_found":        "管理员不存在",
			"slug_conflict":          "名称或标识已存在",
			"username_conflict":      "用户名已存在",
			"category_game_mismatch": "父分类必须属于同一游戏",
			"resource_in_use":        "资源仍被引用，无法删除",
			"invalid_credentials":    "用户名或密码错误",
			"token_invalid":          "认证令牌无效或已过期",
			"credentials_required":   "用户名和密码不能为空",

			"unknown_error": "未知错误",
		},
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal Server Error",
			"invalid_params":        "Invalid Parameters",
			"unauthorized":          "Invalid or expired token",
			"forbidden":             "Forbidden",
			"not_found":             "Resource Not Found",
			"route_not_found":       "Route Not Found",
			"service_unavailable":   "Service Unavailable",

			"file_missing":          "No file uploaded",
			"file_upload_failed":    "File Upload Failed",
			"file_read_failed":      "File Read Failed",
			"file_size_too_large":   "File Size Too Large",
			"file_type_not_allowed": "File Type Not Allowed",
			"too_many_files":        "Too Many Files",

			"storage_config_invalid":         "Storage Config Invalid",
			"storage_connection_failed":      "Storage Connection Failed",
			"storage_upload_failed":          "Storage Upload Failed",
			"storage_delete_failed":          "Storage Delete Failed",
			"storage_list_failed":            "Storage List Failed",
			"storage_provider_not_supported": "Storage Provider Not Supported",
			"storage_quota_failed":           "Storage Quota Unavailable",

			"database_connection":   "Database Connection Error",
			"database_query":        "Database Query Error",
			"database_insert":       "Database Insert Error",
			"database_update":       "Database Update Error",
			"database_delete":       "Database Delete Error",
			"database_transaction":  "Database Transaction Error",
			"record_not_found":      "Record Not Found",
			"record_already_exists": "Record Already Exists",

			"game_not_found":         "Game Not Found",
			"category_not_found":     "Category Not Found",
			"tag_not_found":          "Tag Not Found",
			"material_not_found":     "Material Not Found",
			"admin_not_found":        "Admin Not Found",
			"slug_conflict":          "Name or slug already exists",
			"username_conflict":      "Username already exists",
			"category_game_mismatch": "Parent category must belong to the same game",
			"resource_in_use":        "Resource is still referenced and cannot be deleted",
			"invalid_credentials":    "Invalid username or password",
			"token_invalid":          "Invalid or expired token",
			"credentials_required":   "Username and password are required",

			"unknown_error": "Unknown Error",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangZhCN,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	zhCN := zh.New()
	enUS := en_US.New()
	uni := ut.New(zhCN, zhCN, enUS)

	langMappings := map[string]string{
		LangZhCN: "zh",
		LangEnUS: "en_US",
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logrus.Errorf("初始化翻译器失败: %s (locale: %s)", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}
}

// Translate 根据键和语言获取翻译
func (i *I18n) Translate(key, lang string) string {
	if !i.IsSupportedLanguage(lang) {
		lang = i.defaultLang
	}

	if translation, found := translations[lang][key]; found {
		return translation
	}
	if translation, found := translations[i.defaultLang][key]; found {
		return translation
	}
	return key
}

// ResolveLanguage 解析Accept-Language请求头，返回支持的语言
// 例如 "en-US,en;q=0.9" 解析为 en-US，无法识别时返回默认语言
func (i *I18n) ResolveLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		lower := strings.ToLower(tag)
		switch {
		case strings.HasPrefix(lower, "zh"):
			return LangZhCN
		case strings.HasPrefix(lower, "en"):
			return LangEnUS
		}
	}
	return i.defaultLang
}

// SetDefaultLanguage 设置默认语言
func (i *I18n) SetDefaultLanguage(lang string) {
	i.defaultLang = lang
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := i.translators[lang]
	return exists
}
