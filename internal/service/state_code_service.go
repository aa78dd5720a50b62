package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/pkg/config"
	"buildstate/internal/repository"
	pkgErrors "buildstate/pkg/errors"
)

// StateCodeService 项目状态码目录
type StateCodeService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	policy config.PolicyConfig
	logger *zap.Logger
}

func NewStateCodeService(db *gorm.DB, policy config.PolicyConfig, logger *zap.Logger) *StateCodeService {
	return &StateCodeService{
		db:     db,
		repos:  repository.New(db),
		policy: policy,
		logger: logger,
	}
}

// Create 创建状态码
func (s *StateCodeService) Create(ctx context.Context, projectID int64, req *dto.StateCodeCreateRequest) (*model.StateCode, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.checkFlags(req.IsFinal, req.IsError, req.IsInitial); err != nil {
		return nil, err
	}
	if err := s.checkCode(req.Code); err != nil {
		return nil, err
	}

	sc := &model.StateCode{
		ProjectID:   projectID,
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		IsInitial:   req.IsInitial,
		IsFinal:     req.IsFinal,
		IsError:     req.IsError,
		StartTime:   time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)
		if err := lockProject(ctx, repos, projectID); err != nil {
			return err
		}
		repo := repos.StateCodes
		if err := checkUnique(ctx, repo, sc, 0); err != nil {
			return err
		}
		return repo.Create(ctx, sc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("状态码已创建", zap.Int64("project_id", projectID), zap.String("name", sc.Name), zap.Int("code", sc.Code))
	return sc, nil
}

// List 列出项目状态码
func (s *StateCodeService) List(ctx context.Context, projectID int64, req *dto.StateCodeListRequest) ([]*model.StateCode, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repos.StateCodes.List(ctx, projectID, req.IncludeInactive)
}

// Get 查询状态码, 必须属于该项目
func (s *StateCodeService) Get(ctx context.Context, projectID, id int64) (*model.StateCode, error) {
	sc, err := s.repos.StateCodes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc.ProjectID != projectID {
		return nil, pkgErrors.New(pkgErrors.KindNotFound, "状态码不存在")
	}
	return sc, nil
}

// Update 更新状态码, 唯一性规则与创建一致
func (s *StateCodeService) Update(ctx context.Context, projectID, id int64, req *dto.StateCodeUpdateRequest) (*model.StateCode, error) {
	var sc *model.StateCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)
		if err := lockProject(ctx, repos, projectID); err != nil {
			return err
		}
		repo := repos.StateCodes

		var err error
		sc, err = repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if sc.ProjectID != projectID {
			return pkgErrors.New(pkgErrors.KindNotFound, "状态码不存在")
		}
		if !sc.IsActive() {
			return pkgErrors.New(pkgErrors.KindInvalidState, "状态码已停用")
		}

		if req.Name != nil {
			sc.Name = *req.Name
		}
		if req.Code != nil {
			if err := s.checkCode(*req.Code); err != nil {
				return err
			}
			sc.Code = *req.Code
		}
		if req.Description != nil {
			sc.Description = req.Description
		}
		if req.IsInitial != nil {
			sc.IsInitial = *req.IsInitial
		}
		if req.IsFinal != nil {
			sc.IsFinal = *req.IsFinal
		}
		if req.IsError != nil {
			sc.IsError = *req.IsError
		}
		if err := s.checkFlags(sc.IsFinal, sc.IsError, sc.IsInitial); err != nil {
			return err
		}
		if err := checkUnique(ctx, repo, sc, sc.ID); err != nil {
			return err
		}
		return repo.Update(ctx, sc)
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Deactivate 停用状态码(写入 end_time), 仍有未结束构建指向时拒绝
func (s *StateCodeService) Deactivate(ctx context.Context, projectID, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)

		sc, err := repos.StateCodes.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if sc.ProjectID != projectID {
			return pkgErrors.New(pkgErrors.KindNotFound, "状态码不存在")
		}
		if !sc.IsActive() {
			return nil
		}

		count, err := repos.Builds.CountActiveAtState(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return pkgErrors.Newf(pkgErrors.KindInvalidState, "状态码正在被 %d 个未结束的构建使用, 无法停用", count)
		}

		now := time.Now().UTC()
		sc.EndTime = &now
		if err := repos.StateCodes.Update(ctx, sc); err != nil {
			return err
		}
		s.logger.Info("状态码已停用", zap.Int64("project_id", projectID), zap.String("name", sc.Name))
		return nil
	})
}

func (s *StateCodeService) ensureProject(ctx context.Context, projectID int64) error {
	exists, err := s.repos.Projects.Exists(ctx, projectID)
	if err != nil {
		return err
	}
	if !exists {
		return pkgErrors.Newf(pkgErrors.KindNotFound, "项目 %d 不存在", projectID)
	}
	return nil
}

func (s *StateCodeService) checkFlags(isFinal, isError, isInitial bool) error {
	if isFinal && isError {
		return pkgErrors.New(pkgErrors.KindInvalidArgument, "状态不能同时是 final 和 error")
	}
	if isInitial && (isFinal || isError) {
		return pkgErrors.New(pkgErrors.KindInvalidArgument, "初始状态不能是终态")
	}
	return nil
}

// checkCode 旧版数值状态规则, 仅在策略开启时校验
func (s *StateCodeService) checkCode(code int) error {
	if !s.policy.EnforceStateStep {
		return nil
	}
	if code < 0 || (s.policy.MaxState > 0 && code > s.policy.MaxState) {
		return pkgErrors.Newf(pkgErrors.KindInvalidArgument, "状态值必须在 0-%d 之间", s.policy.MaxState)
	}
	if code%s.policy.StateStep != 0 {
		return pkgErrors.Newf(pkgErrors.KindInvalidArgument, "状态值必须是 %d 的倍数", s.policy.StateStep)
	}
	return nil
}

// checkUnique 同一项目内生效状态名唯一且最多一个生效的初始状态
func checkUnique(ctx context.Context, repo repository.StateCodeRepository, sc *model.StateCode, selfID int64) error {
	existing, err := repo.FindActiveByName(ctx, sc.ProjectID, sc.Name)
	switch {
	case err == nil && existing.ID != selfID:
		return pkgErrors.Newf(pkgErrors.KindConflict, "状态名 '%s' 已存在", sc.Name)
	case err != nil && !pkgErrors.IsKind(err, pkgErrors.KindNotFound):
		return err
	}

	if !sc.IsInitial {
		return nil
	}
	initial, err := repo.FindActiveInitial(ctx, sc.ProjectID)
	switch {
	case err == nil && initial.ID != selfID:
		return pkgErrors.Newf(pkgErrors.KindConflict, "项目已存在初始状态 '%s'", initial.Name)
	case err != nil && !pkgErrors.IsKind(err, pkgErrors.KindNotFound):
		return err
	}
	return nil
}

// lockProject 锁住项目行, 同一项目的状态码写入串行执行, 唯一性检查与写入之间不会被插入
func lockProject(ctx context.Context, repos *repository.Repositories, projectID int64) error {
	_, err := repos.Projects.FindByID(ctx, projectID, repository.WithLock())
	return err
}
