package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	segmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	extPattern     = regexp.MustCompile(`^\.[a-z0-9]{1,16}$`)
)

// ValidSegment 是否为安全的单级路径片段（游戏/分类 slug）
func ValidSegment(s string) bool {
	return len(s) <= 100 && segmentPattern.MatchString(s)
}

// TargetDir 目标目录：{gameSlug} 或 {gameSlug}/{categorySlug}
func TargetDir(gameSlug, categorySlug string) string {
	if categorySlug == "" {
		return gameSlug
	}
	return path.Join(gameSlug, categorySlug)
}

// RandomToken 8位十六进制随机串
func RandomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ObjectName 生成存储文件名：{毫秒时间戳}-{随机串}{扩展名}
// 原始文件名只贡献扩展名，非法扩展名直接丢弃
func ObjectName(now time.Time, token, originalName string) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), token, SafeExt(originalName))
}

// SafeExt 小写扩展名，仅保留字母数字
func SafeExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// CleanDir 规范化客户端传入的目录，如 /starrail/character-art
// 每一级都必须是安全片段，根目录返回空串
func CleanDir(p string) (string, bool) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "", true
	}
	parts := strings.Split(p, "/")
	for _, part := range parts {
		if !ValidSegment(part) {
			return "", false
		}
	}
	return strings.Join(parts, "/"), true
}
