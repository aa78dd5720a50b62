package model

import (
	"time"

	"gorm.io/datatypes"
)

// User 用户
type User struct {
	BaseModelWithSoftDelete
	Username     string                      `gorm:"size:50;not null;uniqueIndex" json:"username"`
	PasswordHash string                      `gorm:"size:255;not null" json:"-"` // 不返回到前端
	AuthProvider string                      `gorm:"size:20;not null" json:"auth_provider"` // local/idm
	Email        *string                     `gorm:"size:100" json:"email"`
	FullName     *string                     `gorm:"size:100" json:"full_name"`
	IsActive     bool                        `gorm:"not null" json:"is_active"`
	Scopes       datatypes.JSONSlice[string] `json:"scopes"` // read/write/admin
	LastLoginAt  *time.Time                  `json:"last_login_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// APIToken 用户API Token, 只保存 SHA-256 摘要
type APIToken struct {
	BaseModelWithSoftDelete
	UserID      int64      `gorm:"not null;index" json:"user_id"`
	TokenHash   string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	TokenPrefix string     `gorm:"size:12;not null" json:"token_prefix"`
	Description string     `gorm:"size:200;not null" json:"description"`
	LastUsedAt  *time.Time `json:"last_used_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (APIToken) TableName() string {
	return "api_tokens"
}
