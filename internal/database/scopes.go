package database

import (
	"errors"
	"math"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage 保证 (page-1)*limit 不溢出
	MaxPage      = math.MaxInt / MaxLimit
)

// NormalizePage 页码默认1并限制在1..MaxPage，每页数量默认20并限制在1..100
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Paginate 分页scope，调用前应先 NormalizePage
func Paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// SearchTitleOrDescription 标题或描述包含关键字（不区分大小写）
// 使用 LOWER + LIKE 以兼容 sqlite、mysql 与 postgres
func SearchTitleOrDescription(keyword string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			return db
		}
		pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"
		return db.Where("(LOWER(materials.title) LIKE ? ESCAPE '!' OR LOWER(COALESCE(materials.description, '')) LIKE ? ESCAPE '!')", pattern, pattern)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}

// IsDuplicateError 是否违反唯一约束
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// IsForeignKeyError 是否违反外键约束
func IsForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "a foreign key constraint fails") ||
		strings.Contains(msg, "violates foreign key constraint")
}

type groupCount struct {
	GroupKey uint
	Total    int64
}

// CountGroupBy 按列分组计数，返回 列值 -> 数量，列值为空的行不计入
func CountGroupBy(db *gorm.DB, table, column string) (map[uint]int64, error) {
	var rows []groupCount
	err := db.Table(table).
		Select(column + " AS group_key, COUNT(*) AS total").
		Where(column + " IS NOT NULL").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.GroupKey] = r.Total
	}
	return counts, nil
}
