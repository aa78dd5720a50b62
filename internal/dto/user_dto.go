package dto

import (
	"time"

	"buildstate/internal/model"
)

// UserCreateRequest 创建本地用户
type UserCreateRequest struct {
	Username string   `json:"username" binding:"required,min=3,max=50"`
	Password string   `json:"password" binding:"required,min=8"`
	Email    *string  `json:"email" binding:"omitempty,email"`
	FullName *string  `json:"full_name" binding:"omitempty,max=100"`
	Scopes   []string `json:"scopes" binding:"omitempty,dive,oneof=read write admin"`
}

// UserUpdateRequest 更新用户; scopes/is_active 仅管理员可改
type UserUpdateRequest struct {
	Email    *string  `json:"email" binding:"omitempty,email"`
	FullName *string  `json:"full_name" binding:"omitempty,max=100"`
	Password *string  `json:"password" binding:"omitempty,min=8"`
	Scopes   []string `json:"scopes" binding:"omitempty,dive,oneof=read write admin"`
	IsActive *bool    `json:"is_active"`
}

// UserResponse 用户信息
type UserResponse struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        *string    `json:"email"`
	FullName     *string    `json:"full_name"`
	AuthProvider string     `json:"auth_provider"`
	IsActive     bool       `json:"is_active"`
	Scopes       []string   `json:"scopes"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TokenCreateRequest 创建API Token
type TokenCreateRequest struct {
	Description string `json:"description" binding:"required,max=200"`
}

// TokenCreateResponse 创建结果, 明文只返回这一次
type TokenCreateResponse struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	TokenPrefix string    `json:"token_prefix"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUserResponse 用户转响应
func NewUserResponse(u *model.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		AuthProvider: u.AuthProvider,
		IsActive:     u.IsActive,
		Scopes:       u.Scopes,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}
