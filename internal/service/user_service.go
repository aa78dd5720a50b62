package service

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/pkg/auth"
	"buildstate/internal/pkg/crypto"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// tokenRandomBytes 用户Token随机部分长度
const tokenRandomBytes = 24

type UserService interface {
	Create(ctx context.Context, req *dto.UserCreateRequest) (*dto.UserResponse, error)
	List(ctx context.Context, query *dto.PageQuery) (*dto.PageResponse, error)
	Get(ctx context.Context, id int64, principal *auth.Principal) (*dto.UserResponse, error)
	Update(ctx context.Context, id int64, req *dto.UserUpdateRequest, principal *auth.Principal) (*dto.UserResponse, error)
	CreateToken(ctx context.Context, userID int64, req *dto.TokenCreateRequest, principal *auth.Principal) (*dto.TokenCreateResponse, error)
	ListTokens(ctx context.Context, userID int64, principal *auth.Principal) ([]*model.APIToken, error)
	DeleteToken(ctx context.Context, userID, tokenID int64, principal *auth.Principal) error
	Me(ctx context.Context, principal *auth.Principal) (*dto.PrincipalResponse, error)
}

type userService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewUserService(repos *repository.Repositories, logger *zap.Logger) UserService {
	return &userService{repos: repos, logger: logger}
}

// Create 创建本地用户, 默认只读
func (s *userService) Create(ctx context.Context, req *dto.UserCreateRequest) (*dto.UserResponse, error) {
	if _, err := s.repos.Users.FindByUsername(ctx, req.Username); err == nil {
		return nil, pkgErrors.Newf(pkgErrors.KindConflict, "用户 %s 已存在", req.Username)
	} else if !pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
		return nil, err
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.KindInternal, "密码加密失败", err)
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
		AuthProvider: constants.AuthTypeLocal,
		Email:        req.Email,
		FullName:     req.FullName,
		IsActive:     true,
		Scopes:       normalizeScopes(req.Scopes),
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("已创建用户", zap.String("username", user.Username), zap.Strings("scopes", user.Scopes))
	return dto.NewUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, query *dto.PageQuery) (*dto.PageResponse, error) {
	users, total, err := s.repos.Users.List(ctx, query.Keyword, repository.Page{
		Offset: query.GetOffset(),
		Limit:  query.GetPageSize(),
	})
	if err != nil {
		return nil, err
	}
	items := lo.Map(users, func(u *model.User, _ int) *dto.UserResponse {
		return dto.NewUserResponse(u)
	})
	return dto.NewPageResponse(items, total, query.GetPage(), query.GetPageSize()), nil
}

// Get 本人或管理员可查看
func (s *userService) Get(ctx context.Context, id int64, principal *auth.Principal) (*dto.UserResponse, error) {
	if err := checkSelfOrAdmin(principal, id); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// Update 本人可改资料与密码; scopes/is_active 仅管理员可改
func (s *userService) Update(ctx context.Context, id int64, req *dto.UserUpdateRequest, principal *auth.Principal) (*dto.UserResponse, error) {
	if err := checkSelfOrAdmin(principal, id); err != nil {
		return nil, err
	}
	if (req.Scopes != nil || req.IsActive != nil) && !principal.Allow(auth.PermUserManage) {
		return nil, pkgErrors.New(pkgErrors.KindForbidden, "修改权限或状态需要 admin 权限")
	}

	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = req.Email
	}
	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.Password != nil {
		if user.AuthProvider != constants.AuthTypeLocal {
			return nil, pkgErrors.New(pkgErrors.KindInvalidArgument, "IDM用户不能修改密码")
		}
		hash, err := crypto.HashPassword(*req.Password)
		if err != nil {
			return nil, pkgErrors.Wrap(pkgErrors.KindInternal, "密码加密失败", err)
		}
		user.PasswordHash = hash
	}
	if req.Scopes != nil {
		user.Scopes = normalizeScopes(req.Scopes)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// CreateToken 生成用户API Token, 明文只在响应中出现一次
func (s *userService) CreateToken(ctx context.Context, userID int64, req *dto.TokenCreateRequest, principal *auth.Principal) (*dto.TokenCreateResponse, error) {
	if err := checkSelfOrAdmin(principal, userID); err != nil {
		return nil, err
	}
	if _, err := s.repos.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	random, err := crypto.RandomToken(tokenRandomBytes)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.KindInternal, "生成Token失败", err)
	}
	plain := constants.APITokenPrefix + random

	token := &model.APIToken{
		UserID:      userID,
		TokenHash:   crypto.HashToken(plain),
		TokenPrefix: plain[:len(constants.APITokenPrefix)+4],
		Description: req.Description,
	}
	if err := s.repos.APITokens.Create(ctx, token); err != nil {
		return nil, err
	}

	s.logger.Info("已创建API Token", zap.Int64("user_id", userID), zap.Int64("token_id", token.ID))
	return &dto.TokenCreateResponse{
		ID:          token.ID,
		Token:       plain,
		TokenPrefix: token.TokenPrefix,
		Description: token.Description,
		CreatedAt:   token.CreatedAt,
	}, nil
}

func (s *userService) ListTokens(ctx context.Context, userID int64, principal *auth.Principal) ([]*model.APIToken, error) {
	if err := checkSelfOrAdmin(principal, userID); err != nil {
		return nil, err
	}
	return s.repos.APITokens.ListByUser(ctx, userID)
}

func (s *userService) DeleteToken(ctx context.Context, userID, tokenID int64, principal *auth.Principal) error {
	if err := checkSelfOrAdmin(principal, userID); err != nil {
		return err
	}
	token, err := s.repos.APITokens.FindByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if token.UserID != userID {
		return pkgErrors.New(pkgErrors.KindNotFound, "Token不存在")
	}
	return s.repos.APITokens.Delete(ctx, tokenID)
}

// Me 当前调用方信息
func (s *userService) Me(ctx context.Context, principal *auth.Principal) (*dto.PrincipalResponse, error) {
	if principal == nil {
		return nil, pkgErrors.ErrUnauthorized
	}
	resp := &dto.PrincipalResponse{
		Kind:   principal.Kind,
		Name:   principal.Name,
		Scopes: principal.Scopes,
	}
	if principal.Kind == auth.PrincipalUser {
		user, err := s.repos.Users.FindByID(ctx, principal.UserID)
		if err != nil {
			return nil, err
		}
		resp.User = dto.NewUserResponse(user)
	}
	return resp, nil
}

func checkSelfOrAdmin(principal *auth.Principal, userID int64) error {
	if principal.IsUser(userID) || principal.Allow(auth.PermUserManage) {
		return nil
	}
	return pkgErrors.ErrForbidden
}

func normalizeScopes(scopes []string) []string {
	scopes = lo.Uniq(lo.Filter(scopes, func(s string, _ int) bool { return auth.ValidScope(s) }))
	if len(scopes) == 0 {
		return []string{constants.ScopeRead}
	}
	return scopes
}
