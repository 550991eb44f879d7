// Package database 定义素材库的数据模型、连接初始化、迁移与种子数据
package database

import (
	"time"
)

// TagType 标签类型
type TagType string

const (
	TagTypeCharacter TagType = "CHARACTER" // 角色
	TagTypeElement   TagType = "ELEMENT"   // 属性
	TagTypeRarity    TagType = "RARITY"    // 稀有度
	TagTypeVersion   TagType = "VERSION"   // 版本
	TagTypeScene     TagType = "SCENE"     // 场景
	TagTypeOther     TagType = "OTHER"     // 其他
)

// Valid 是否为合法的标签类型
func (t TagType) Valid() bool {
	switch t {
	case TagTypeCharacter, TagTypeElement, TagTypeRarity, TagTypeVersion, TagTypeScene, TagTypeOther:
		return true
	}
	return false
}

// MaterialStatus 素材生命周期状态
type MaterialStatus string

const (
	StatusDraft     MaterialStatus = "DRAFT"     // 草稿
	StatusPublished MaterialStatus = "PUBLISHED" // 已发布
	StatusArchived  MaterialStatus = "ARCHIVED"  // 已归档
)

// Valid 是否为合法的素材状态
func (s MaterialStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Game 游戏模型
// 素材库的顶层分组，拥有分类与素材
type Game struct {
	ID        uint      `gorm:"primarykey" json:"id"`                          // 主键ID
	Name      string    `gorm:"not null;uniqueIndex;size:100" json:"name"`     // 游戏名称，唯一
	Slug      string    `gorm:"not null;uniqueIndex;size:100" json:"slug"`     // URL标识，唯一
	Icon      *string   `gorm:"size:500" json:"icon"`                          // 图标地址，可为空
	SortOrder int       `gorm:"not null;default:0;index" json:"sortOrder"`     // 排序，升序
	IsActive  bool      `gorm:"not null" json:"isActive"`                      // 是否在前台展示
	CreatedAt time.Time `json:"createdAt"`                                     // 创建时间
	UpdatedAt time.Time `json:"updatedAt"`                                     // 更新时间

	Categories []Category `gorm:"foreignKey:GameID" json:"categories,omitempty"` // 分类列表
	Count      *GameCount `gorm:"-" json:"_count,omitempty"`                     // 关联计数，仅管理端列表返回
}

// GameCount 游戏关联计数
type GameCount struct {
	Materials  int64 `json:"materials"`
	Categories int64 `json:"categories"`
}

func (Game) TableName() string {
	return "games"
}

// Category 分类模型
// slug 仅在所属游戏内唯一
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                  // 主键ID
	GameID    uint      `gorm:"not null;uniqueIndex:idx_categories_game_slug,priority:1" json:"gameId"` // 所属游戏
	Name      string    `gorm:"not null;size:100" json:"name"`                                         // 分类名称
	Slug      string    `gorm:"not null;size:100;uniqueIndex:idx_categories_game_slug,priority:2" json:"slug"`
	ParentID  *uint     `gorm:"index" json:"parentId"`                     // 父分类ID，顶层为空
	SortOrder int       `gorm:"not null;default:0" json:"sortOrder"`       // 排序，升序
	CreatedAt time.Time `json:"createdAt"`                                 // 创建时间
	UpdatedAt time.Time `json:"updatedAt"`                                 // 更新时间

	Game   *Game          `gorm:"foreignKey:GameID" json:"game,omitempty"`
	Parent *Category      `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Count  *CategoryCount `gorm:"-" json:"_count,omitempty"`
}

// CategoryCount 分类关联计数
type CategoryCount struct {
	Materials int64 `json:"materials"`
}

func (Category) TableName() string {
	return "categories"
}

// Tag 标签模型
// slug 全局唯一，类型取自固定枚举
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`                     // 主键ID
	Name      string    `gorm:"not null;uniqueIndex;size:50" json:"name"` // 标签名称，唯一
	Slug      string    `gorm:"not null;uniqueIndex;size:50" json:"slug"` // URL标识，全局唯一
	Type      TagType   `gorm:"not null;size:20;index" json:"type"`       // 标签类型
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Materials []MaterialTag `gorm:"foreignKey:TagID" json:"materials,omitempty"` // 关联素材，仅详情返回
	Count     *TagCount     `gorm:"-" json:"_count,omitempty"`
}

// TagCount 标签关联计数
type TagCount struct {
	Materials int64 `json:"materials"`
}

func (Tag) TableName() string {
	return "tags"
}

// Material 素材模型
// FileSize 以字符串形式序列化，避免前端精度丢失
type Material struct {
	ID            uint           `gorm:"primarykey" json:"id"`                    // 主键ID
	GameID        uint           `gorm:"not null;index" json:"gameId"`            // 所属游戏
	CategoryID    uint           `gorm:"not null;index" json:"categoryId"`        // 所属分类
	Title         string         `gorm:"not null;size:200" json:"title"`          // 标题
	Description   *string        `gorm:"type:text" json:"description"`            // 描述
	FilePath      string         `gorm:"not null;size:1000" json:"filePath"`      // 存储地址
	FileSize      int64          `gorm:"not null" json:"fileSize,string"`         // 文件大小（字节）
	FileType      string         `gorm:"not null;size:100" json:"fileType"`       // MIME类型
	Duration      *int           `json:"duration"`                                // 时长（秒）
	Resolution    *string        `gorm:"size:50" json:"resolution"`               // 分辨率
	Version       *string        `gorm:"size:50" json:"version"`                  // 游戏版本
	Status        MaterialStatus `gorm:"not null;size:20;index" json:"status"`    // 生命周期状态
	DownloadCount int64          `gorm:"not null;default:0" json:"downloadCount"` // 下载次数
	IsFeatured    bool           `gorm:"not null" json:"isFeatured"`              // 是否精选
	UploadTime    time.Time      `gorm:"not null" json:"uploadTime"`              // 上传时间
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	Game     *Game         `gorm:"foreignKey:GameID" json:"game,omitempty"`
	Category *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags     []MaterialTag `gorm:"foreignKey:MaterialID" json:"tags,omitempty"`
}

func (Material) TableName() string {
	return "materials"
}

// MaterialTag 素材标签关联
// 以 (material_id, tag_id) 作为联合主键
type MaterialTag struct {
	MaterialID uint      `gorm:"primaryKey;autoIncrement:false" json:"materialId"`
	TagID      uint      `gorm:"primaryKey;autoIncrement:false;index" json:"tagId"`
	CreatedAt  time.Time `json:"createdAt"`

	Material *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Tag      *Tag      `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}

func (MaterialTag) TableName() string {
	return "material_tags"
}

// DownloadLog 下载日志
// 只追加不修改，素材删除后仍保留
type DownloadLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	MaterialID uint      `gorm:"not null;index" json:"materialId"` // 素材ID，不建外键
	IP         string    `gorm:"size:64" json:"ip"`                // 请求方IP
	UserAgent  string    `gorm:"size:500" json:"userAgent"`        // 请求方UA
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (DownloadLog) TableName() string {
	return "download_logs"
}

// Admin 管理员
type Admin struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Username     string     `gorm:"not null;uniqueIndex;size:50" json:"username"` // 用户名，唯一
	PasswordHash string     `gorm:"not null;size:255" json:"-"`                   // bcrypt 哈希，不序列化
	LastLogin    *time.Time `json:"lastLogin"`                                    // 最后登录时间
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (Admin) TableName() string {
	return "admins"
}

// AllModels 参与自动迁移的全部模型，顺序即建表顺序
func AllModels() []interface{} {
	return []interface{}{
		&Game{},
		&Category{},
		&Tag{},
		&Material{},
		&MaterialTag{},
		&DownloadLog{},
		&Admin{},
	}
}
