// Package account 提供管理员登录、令牌校验与账号维护
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/internal/auth"
	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
	"github.com/sumicowork/HOYODB/internal/logger"
)

// AccountService 管理员账号服务接口
type AccountService interface {
	// Login 校验用户名密码并签发令牌
	// 参数:
	//   username - 用户名
	//   password - 明文密码
	// 返回:
	//   *LoginResult - 令牌与管理员信息
	//   error - 用户名或密码错误时统一返回凭证错误
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// Verify 确认令牌对应的管理员仍然存在
	Verify(ctx context.Context, adminID uint) (*AdminInfo, error)
}

// AdminInfo 对外暴露的管理员信息
type AdminInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token string    `json:"token"`
	Admin AdminInfo `json:"admin"`
}

// Service 管理员账号服务实现
type Service struct {
	db     *gorm.DB
	tokens *auth.TokenManager
	now    func() time.Time
}

// NewService 创建账号服务
func NewService(db *gorm.DB, tokens *auth.TokenManager) *Service {
	return &Service{db: db, tokens: tokens, now: time.Now}
}

// Login 管理员登录
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrCredentialsRequired, "用户名和密码不能为空")
	}

	db := s.db.WithContext(ctx)
	var admin database.Admin
	if err := db.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrInvalidCredentials, "用户名或密码错误")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "登录失败", err)
	}
	if !auth.CheckPassword(admin.PasswordHash, password) {
		return nil, apperrors.New(apperrors.ErrInvalidCredentials, "用户名或密码错误")
	}

	now := s.now()
	if err := db.Model(&admin).UpdateColumn("last_login", now).Error; err != nil {
		// 登录时间写入失败不影响登录
		logger.Warnf("更新管理员 %s 最后登录时间失败: %v", admin.Username, err)
	}

	token, err := s.tokens.GenerateToken(admin.ID, admin.Username)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, "签发令牌失败", err)
	}

	return &LoginResult{
		Token: token,
		Admin: AdminInfo{ID: admin.ID, Username: admin.Username},
	}, nil
}

// Verify 校验管理员是否存在
func (s *Service) Verify(ctx context.Context, adminID uint) (*AdminInfo, error) {
	var admin database.Admin
	if err := s.db.WithContext(ctx).First(&admin, adminID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrTokenInvalid, "认证令牌无效或已过期")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "校验管理员失败", err)
	}
	return &AdminInfo{ID: admin.ID, Username: admin.Username}, nil
}

// SetPassword 创建管理员，已存在时重置密码
// 参数:
//   username - 用户名
//   password - 明文密码
// 返回:
//   *database.Admin - 管理员
//   bool - 是否新建
//   error - 错误信息
func (s *Service) SetPassword(ctx context.Context, username, password string) (*database.Admin, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false, apperrors.New(apperrors.ErrCredentialsRequired, "用户名和密码不能为空")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, "密码加密失败", err)
	}

	db := s.db.WithContext(ctx)
	var admin database.Admin
	err = db.Where("username = ?", username).First(&admin).Error
	switch {
	case err == nil:
		if err := db.Model(&admin).Update("password_hash", hash).Error; err != nil {
			return nil, false, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "重置密码失败", err)
		}
		return &admin, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin = database.Admin{Username: username, PasswordHash: hash}
		if err := db.Create(&admin).Error; err != nil {
			if database.IsDuplicateError(err) {
				return nil, false, apperrors.New(apperrors.ErrUsernameConflict, "用户名已存在")
			}
			return nil, false, apperrors.Wrap(apperrors.ErrDatabaseInsert, "创建管理员失败", err)
		}
		return &admin, true, nil
	default:
		return nil, false, apperrors.Wrap(apperrors.ErrDatabaseQuery, "查询管理员失败", err)
	}
}
