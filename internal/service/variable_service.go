package service

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildstate/internal/core/resume"
	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/pkg/auth"
	"buildstate/internal/pkg/crypto"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// VariableService 构建上下文变量
//
// 列表/字典视图始终掩码敏感值; 单个变量的原始值只对管理员开放。
type VariableService struct {
	repos  *repository.Repositories
	cipher *crypto.Cipher
	logger *zap.Logger
}

// NewVariableService cipher 为 nil 时敏感值明文存储
func NewVariableService(repos *repository.Repositories, cipher *crypto.Cipher, logger *zap.Logger) *VariableService {
	return &VariableService{
		repos:  repos,
		cipher: cipher,
		logger: logger,
	}
}

// Set 按 key upsert 变量
func (s *VariableService) Set(ctx context.Context, buildID int64, req *dto.VariableSetRequest) (*dto.VariableResponse, error) {
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}

	variable := &model.BuildVariable{
		BuildID:             buildID,
		VariableKey:         req.VariableKey,
		VariableType:        lo.Ternary(req.VariableType == "", constants.VariableTypeString, req.VariableType),
		SetAtState:          req.SetAtState,
		IsSensitive:         req.IsSensitive,
		IsRequiredForResume: req.IsRequiredForResume,
	}
	if err := s.seal(variable, req.VariableValue); err != nil {
		return nil, err
	}

	saved, err := s.repos.Variables.Upsert(ctx, variable)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("变量已写入", zap.Int64("build_id", buildID), zap.String("key", req.VariableKey))
	return dto.NewVariableResponse(saved, resume.MaskedValue(saved)), nil
}

// List 全部变量, 敏感值掩码, 按 key 排序
func (s *VariableService) List(ctx context.Context, buildID int64) ([]*dto.VariableResponse, error) {
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}
	variables, err := s.repos.Variables.ListByBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	return lo.Map(variables, func(v *model.BuildVariable, _ int) *dto.VariableResponse {
		return dto.NewVariableResponse(v, resume.MaskedValue(v))
	}), nil
}

// Dict key->value 投影, 可按 is_required_for_resume 过滤
func (s *VariableService) Dict(ctx context.Context, buildID int64, req *dto.VariableDictRequest) (map[string]string, error) {
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}
	variables, err := s.repos.Variables.ListByBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if req != nil && req.RequiredForResume != nil {
		variables = lo.Filter(variables, func(v *model.BuildVariable, _ int) bool {
			return v.IsRequiredForResume == *req.RequiredForResume
		})
	}
	return resume.MaskedDict(variables), nil
}

// Get 单个变量的原始值; 敏感变量需要 admin
func (s *VariableService) Get(ctx context.Context, buildID int64, key string, principal *auth.Principal) (*dto.VariableResponse, error) {
	variable, err := s.repos.Variables.FindByKey(ctx, buildID, key)
	if err != nil {
		return nil, err
	}
	if variable.IsSensitive && !principal.Allow(auth.PermVariableRevealRaw) {
		return nil, pkgErrors.New(pkgErrors.KindForbidden, "读取敏感变量原始值需要 admin 权限")
	}

	value, err := s.open(variable)
	if err != nil {
		return nil, err
	}
	return dto.NewVariableResponse(variable, value), nil
}

// Update 部分更新变量
func (s *VariableService) Update(ctx context.Context, buildID int64, key string, req *dto.VariableUpdateRequest) (*dto.VariableResponse, error) {
	variable, err := s.repos.Variables.FindByKey(ctx, buildID, key)
	if err != nil {
		return nil, err
	}

	value, err := s.open(variable)
	if err != nil {
		return nil, err
	}
	if req.VariableValue != nil {
		value = *req.VariableValue
	}
	if req.VariableType != nil {
		variable.VariableType = *req.VariableType
	}
	if req.SetAtState != nil {
		variable.SetAtState = req.SetAtState
	}
	if req.IsSensitive != nil {
		variable.IsSensitive = *req.IsSensitive
	}
	if req.IsRequiredForResume != nil {
		variable.IsRequiredForResume = *req.IsRequiredForResume
	}
	if err := s.seal(variable, value); err != nil {
		return nil, err
	}

	// 按 (build_id, variable_key) 冲突更新, 不按主键插入
	variable.ID = 0
	saved, err := s.repos.Variables.Upsert(ctx, variable)
	if err != nil {
		return nil, err
	}
	return dto.NewVariableResponse(saved, resume.MaskedValue(saved)), nil
}

// Delete 删除变量
func (s *VariableService) Delete(ctx context.Context, buildID int64, key string) error {
	return s.repos.Variables.Delete(ctx, buildID, key)
}

// seal 敏感值在启用加密时以密文存储
func (s *VariableService) seal(v *model.BuildVariable, value string) error {
	if v.IsSensitive && s.cipher.Enabled() {
		encrypted, err := s.cipher.Encrypt(value)
		if err != nil {
			return pkgErrors.Wrap(pkgErrors.KindInternal, "加密变量失败", err)
		}
		v.VariableValue = encrypted
		v.Encrypted = true
		return nil
	}
	v.VariableValue = value
	v.Encrypted = false
	return nil
}

func (s *VariableService) open(v *model.BuildVariable) (string, error) {
	if !v.Encrypted {
		return v.VariableValue, nil
	}
	if !s.cipher.Enabled() {
		return "", pkgErrors.New(pkgErrors.KindInternal, "变量已加密但未配置 crypto.aes_key")
	}
	value, err := s.cipher.Decrypt(v.VariableValue)
	if err != nil {
		return "", pkgErrors.Wrap(pkgErrors.KindInternal, "解密变量失败", err)
	}
	return value, nil
}
