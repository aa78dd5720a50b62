package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"buildstate/internal/pkg/config"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// UserClaims 用户Claims
type UserClaims struct {
	UserID   int64    `json:"uid"`
	Username string   `json:"username"`
	AuthType string   `json:"auth_type"` // local or idm
	Scopes   []string `json:"scopes"`
	Type     string   `json:"type"` // access or refresh
	jwt.RegisteredClaims
}

// Manager 负责签发与校验Token
type Manager struct {
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewManager 创建Token管理器
func NewManager(cfg config.JWTConfig) *Manager {
	return &Manager{
		secret:        []byte(cfg.Secret),
		accessExpire:  time.Duration(cfg.AccessTokenExpire) * time.Second,
		refreshExpire: time.Duration(cfg.RefreshTokenExpire) * time.Second,
	}
}

// AccessExpire 访问Token有效期
func (m *Manager) AccessExpire() time.Duration {
	return m.accessExpire
}

// GenerateAccessToken 生成访问Token
func (m *Manager) GenerateAccessToken(userID int64, username, authType string, scopes []string) (string, error) {
	return m.generate(userID, username, authType, scopes, constants.JWTTypeAccess, m.accessExpire)
}

// GenerateRefreshToken 生成刷新Token
func (m *Manager) GenerateRefreshToken(userID int64, username, authType string, scopes []string) (string, error) {
	return m.generate(userID, username, authType, scopes, constants.JWTTypeRefresh, m.refreshExpire)
}

func (m *Manager) generate(userID int64, username, authType string, scopes []string, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:   userID,
		Username: username,
		AuthType: authType,
		Scopes:   scopes,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析Token
func (m *Manager) ParseToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.KindUnauthorized, "解析Token失败", err)
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, pkgErrors.ErrInvalidToken
}

// ValidateToken 验证Token有效性及类型
func (m *Manager) ValidateToken(tokenString, expectType string) (*UserClaims, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, pkgErrors.ErrTokenExpired
	}
	if expectType != "" && claims.Type != expectType {
		return nil, pkgErrors.ErrInvalidToken
	}

	return claims, nil
}
