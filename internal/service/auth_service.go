package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/pkg/auth"
	"buildstate/internal/pkg/config"
	"buildstate/internal/pkg/crypto"
	"buildstate/internal/pkg/jwt"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// AuthService 登录与调用方认证
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	LoginIDM(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	AuthenticateBearer(ctx context.Context, token string) (*auth.Principal, error)
	AuthenticateAPIKey(ctx context.Context, key string) (*auth.Principal, error)
}

type authService struct {
	cfg         *config.AuthConfig
	repos       *repository.Repositories
	tokens      *jwt.Manager
	ldapService LDAPService
	logger      *zap.Logger
}

func NewAuthService(
	cfg *config.AuthConfig,
	repos *repository.Repositories,
	tokens *jwt.Manager,
	ldapService LDAPService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:         cfg,
		repos:       repos,
		tokens:      tokens,
		ldapService: ldapService,
		logger:      logger,
	}
}

// Login 本地用户名密码登录
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if !s.cfg.Local.Enabled {
		return nil, pkgErrors.New(pkgErrors.KindUnauthorized, "本地认证未启用")
	}

	user, err := s.repos.Users.FindByUsername(ctx, req.Username)
	if err != nil {
		if pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
			return nil, pkgErrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.AuthProvider != constants.AuthTypeLocal || !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return nil, pkgErrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, pkgErrors.ErrUserDisabled
	}

	return s.issue(ctx, user)
}

// LoginIDM IDM(LDAP)登录, 首次登录自动创建只读用户
func (s *authService) LoginIDM(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if !s.cfg.LDAP.Enabled {
		return nil, pkgErrors.New(pkgErrors.KindUnauthorized, "IDM认证未启用")
	}

	info, err := s.ldapService.Authenticate(req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.syncIDMUser(ctx, info)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgErrors.ErrUserDisabled
	}

	return s.issue(ctx, user)
}

func (s *authService) syncIDMUser(ctx context.Context, info *IdentityInfo) (*model.User, error) {
	user, err := s.repos.Users.FindByUsername(ctx, info.Username)
	if err == nil {
		if user.AuthProvider != constants.AuthTypeLDAP {
			return nil, pkgErrors.New(pkgErrors.KindConflict, "用户名已被本地用户占用")
		}
		return user, nil
	}
	if !pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
		return nil, err
	}

	user = &model.User{
		Username:     info.Username,
		AuthProvider: constants.AuthTypeLDAP,
		Email:        lo.EmptyableToPtr(info.Email),
		FullName:     lo.EmptyableToPtr(info.FullName),
		IsActive:     true,
		Scopes:       []string{constants.ScopeRead},
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("已创建IDM用户", zap.String("username", user.Username))
	return user, nil
}

func (s *authService) issue(ctx context.Context, user *model.User) (*dto.LoginResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Username, user.AuthProvider, user.Scopes)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.KindInternal, "生成AccessToken失败", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.Username, user.AuthProvider, user.Scopes)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.KindInternal, "生成RefreshToken失败", err)
	}

	// 更新最后登录时间
	now := time.Now()
	if err := s.repos.Users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessExpire().Seconds()),
		User:         dto.NewUserResponse(user),
	}, nil
}

// RefreshToken 使用 RefreshToken 换发新Token, 权限以数据库为准
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, constants.JWTTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		if pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
			return nil, pkgErrors.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgErrors.ErrUserDisabled
	}

	return s.issue(ctx, user)
}

// AuthenticateBearer 校验访问Token
func (s *authService) AuthenticateBearer(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.tokens.ValidateToken(token, constants.JWTTypeAccess)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{
		Kind:   auth.PrincipalUser,
		UserID: claims.UserID,
		Name:   claims.Username,
		Scopes: claims.Scopes,
	}, nil
}

// AuthenticateAPIKey 先匹配配置中的全局Key, 再匹配用户Token
func (s *authService) AuthenticateAPIKey(ctx context.Context, key string) (*auth.Principal, error) {
	for _, k := range s.cfg.APIKeys {
		if k.Key != "" && subtle.ConstantTimeCompare([]byte(k.Key), []byte(key)) == 1 {
			return &auth.Principal{
				Kind:   auth.PrincipalAPIKey,
				Name:   k.Name,
				Scopes: k.Scopes,
			}, nil
		}
	}

	if !strings.HasPrefix(key, constants.APITokenPrefix) {
		return nil, pkgErrors.New(pkgErrors.KindUnauthorized, "无效的API Key")
	}

	token, err := s.repos.APITokens.FindByHash(ctx, crypto.HashToken(key))
	if err != nil {
		if pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
			return nil, pkgErrors.New(pkgErrors.KindUnauthorized, "无效的API Key")
		}
		return nil, err
	}
	if token.User == nil || !token.User.IsActive {
		return nil, pkgErrors.ErrUserDisabled
	}

	if err := s.repos.APITokens.Touch(ctx, token.ID, time.Now()); err != nil {
		s.logger.Warn("更新Token使用时间失败", zap.Int64("token_id", token.ID), zap.Error(err))
	}

	return &auth.Principal{
		Kind:   auth.PrincipalUser,
		UserID: token.User.ID,
		Name:   token.User.Username,
		Scopes: token.User.Scopes,
	}, nil
}
